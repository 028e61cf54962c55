package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/adapters/daraja"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

type InitiateRequest struct {
	Phone           string `json:"phone" validate:"required"`
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	ReferenceID     string `json:"reference_id" validate:"required,uuid"`
	TransactionType string `json:"transaction_type" validate:"required,oneof=booking gift_voucher"`
}

type InitiateResponse struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	CustomerMessage   string `json:"customer_message,omitempty"`
}

// HandleInitiate starts an M-Pesa STK push for a pending booking or voucher.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("malformed request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return
	}

	referenceID, err := uuid.Parse(req.ReferenceID)
	if err != nil {
		respondWithError(w, domain.NewValidationError("reference_id must be a uuid"))
		return
	}

	entry, err := h.initiate.Initiate(r.Context(), service.InitiateCommand{
		Phone:           req.Phone,
		Amount:          req.Amount,
		ReferenceID:     referenceID,
		TransactionType: domain.TransactionType(req.TransactionType),
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, InitiateResponse{
		CheckoutRequestID: entry.CheckoutRequestID,
		MerchantRequestID: entry.MerchantRequestID,
	})
}

// HandleCallback receives the gateway's asynchronous result. It acknowledges
// with 200 no matter what happens internally: the gateway cannot be told to
// try later, and a non-200 would only provoke a retry storm.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ack := func() {
		respondWithJSON(w, http.StatusOK, map[string]any{
			"ResultCode": 0,
			"ResultDesc": "Accepted",
		})
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read callback body", "error", err)
		ack()
		return
	}

	cb, err := daraja.ParseCallback(body)
	if err != nil {
		h.logger.Error("failed to parse gateway callback", "error", err)
		ack()
		return
	}

	if err := h.callbacks.Process(r.Context(), cb); err != nil {
		h.logger.Error("callback processing failed",
			"checkout_request_id", cb.CheckoutRequestID,
			"error", err,
		)
	}
	ack()
}

type StatusResponse struct {
	CheckoutRequestID string  `json:"checkout_request_id"`
	Status            string  `json:"status"`
	ResultCode        *int    `json:"result_code,omitempty"`
	ResultDesc        *string `json:"result_desc,omitempty"`
}

// HandleStatus is the single read the browser-side poll loop performs.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.status.Check(r.Context(), r.PathValue("checkoutRequestID"))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, statusResponse(view))
}

type WaitResponse struct {
	Outcome    string  `json:"outcome"`
	ResultCode *int    `json:"result_code,omitempty"`
	ResultDesc *string `json:"result_desc,omitempty"`
	Attempts   int     `json:"attempts"`
}

// HandleWait long-polls the ledger server-side until the payment reaches a
// terminal state or the attempt budget runs out. A timed-out wait is not a
// failure; the client is told to check again later.
func (h *Handler) HandleWait(w http.ResponseWriter, r *http.Request) {
	checkoutRequestID := r.PathValue("checkoutRequestID")

	// One authoritative read up front so an unknown id is a 404, not a
	// poll that times out.
	if _, err := h.status.Check(r.Context(), checkoutRequestID); err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.poller.Poll(r.Context(), func(ctx context.Context) (*service.PaymentStatusView, error) {
		return h.status.Check(ctx, checkoutRequestID)
	})
	if err != nil {
		respondWithError(w, domain.NewInternalError(err))
		return
	}

	respondWithJSON(w, http.StatusOK, WaitResponse{
		Outcome:    string(result.Outcome),
		ResultCode: result.ResultCode,
		ResultDesc: result.ResultDesc,
		Attempts:   result.Attempts,
	})
}

func statusResponse(view *service.PaymentStatusView) StatusResponse {
	return StatusResponse{
		CheckoutRequestID: view.CheckoutRequestID,
		Status:            string(view.Status),
		ResultCode:        view.ResultCode,
		ResultDesc:        view.ResultDesc,
	}
}
