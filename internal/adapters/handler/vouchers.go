package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

type PurchaseVoucherRequest struct {
	SenderName     string `json:"sender_name" validate:"required"`
	SenderPhone    string `json:"sender_phone" validate:"required"`
	RecipientName  string `json:"recipient_name" validate:"required"`
	RecipientEmail string `json:"recipient_email" validate:"omitempty,email"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Branch         string `json:"branch" validate:"required"`
	Message        string `json:"message"`
}

type VoucherResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	SenderName    string `json:"sender_name"`
	RecipientName string `json:"recipient_name"`
	Amount        int64  `json:"amount"`
	Branch        string `json:"branch"`
	Message       string `json:"message,omitempty"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	ExpiresAt     string `json:"expires_at"`
}

// HandlePurchaseVoucher creates an active voucher awaiting payment; the
// client then initiates payment with the returned id as reference.
func (h *Handler) HandlePurchaseVoucher(w http.ResponseWriter, r *http.Request) {
	var req PurchaseVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("malformed request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return
	}

	voucher, err := h.vouchers.Purchase(r.Context(), service.PurchaseVoucherCommand{
		SenderName:     req.SenderName,
		SenderPhone:    req.SenderPhone,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		Amount:         req.Amount,
		Branch:         req.Branch,
		Message:        req.Message,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, voucherResponse(voucher))
}

type ValidateVoucherRequest struct {
	Code string `json:"code" validate:"required"`
}

// HandleValidateVoucher is the code-entry step of redemption.
func (h *Handler) HandleValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req ValidateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return
	}

	voucher, err := h.redemption.Validate(r.Context(), req.Code)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, voucherResponse(voucher))
}

type RedeemVoucherRequest struct {
	Code          string `json:"code" validate:"required"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	Date          string `json:"date" validate:"required"`
	StartTime     string `json:"start_time" validate:"required"`
	Duration      int    `json:"duration" validate:"required"`
}

// HandleRedeemVoucher converts a paid voucher into a confirmed zero-cost booking.
func (h *Handler) HandleRedeemVoucher(w http.ResponseWriter, r *http.Request) {
	var req RedeemVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := validateStartTime(req.StartTime); err != nil {
		respondWithError(w, err)
		return
	}

	booking, err := h.redemption.Redeem(r.Context(), service.RedeemCommand{
		Code:          req.Code,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Date:          date,
		StartTime:     req.StartTime,
		Duration:      req.Duration,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, bookingResponse(booking))
}

// HandleGetVoucher lets the purchaser check their voucher after buying it.
func (h *Handler) HandleGetVoucher(w http.ResponseWriter, r *http.Request) {
	voucher, err := h.vouchers.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, voucherResponse(voucher))
}

func (h *Handler) HandleListVouchers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	vouchers, err := h.vouchers.List(r.Context(), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}

	out := make([]VoucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, voucherResponse(v))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleAdminCancelVoucher(w http.ResponseWriter, r *http.Request) {
	if err := h.vouchers.AdminCancel(r.Context(), r.PathValue("code")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(domain.VoucherCancelled)})
}

func voucherResponse(v *domain.Voucher) VoucherResponse {
	return VoucherResponse{
		ID:            v.ID.String(),
		Code:          v.Code,
		SenderName:    v.SenderName,
		RecipientName: v.RecipientName,
		Amount:        v.Amount,
		Branch:        v.Branch,
		Message:       v.Message,
		Status:        string(v.Status),
		PaymentStatus: string(v.PaymentStatus),
		ExpiresAt:     v.ExpiresAt.Format(time.RFC3339),
	}
}
