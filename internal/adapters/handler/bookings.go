package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

type CreateBookingRequest struct {
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerPhone string `json:"customer_phone" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	Date          string `json:"date" validate:"required"`
	StartTime     string `json:"start_time" validate:"required"`
	Duration      int    `json:"duration" validate:"required"`
	Branch        string `json:"branch" validate:"required"`
	Notes         string `json:"notes"`
}

type BookingResponse struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Duration      int    `json:"duration"`
	Branch        string `json:"branch"`
	TotalAmount   int64  `json:"total_amount"`
	Notes         string `json:"notes,omitempty"`
	Status        string `json:"status"`
}

// HandleCreateBooking creates a pending booking; the client then initiates
// payment with the returned id as reference.
func (h *Handler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
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

	booking, err := h.bookings.Create(r.Context(), service.CreateBookingCommand{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Date:          date,
		StartTime:     req.StartTime,
		Duration:      req.Duration,
		Branch:        req.Branch,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, bookingResponse(booking))
}

func (h *Handler) HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondWithError(w, domain.NewValidationError("booking id must be a uuid"))
		return
	}

	booking, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bookingResponse(booking))
}

func (h *Handler) HandleListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	bookings, err := h.bookings.List(r.Context(), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}

	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingResponse(b))
	}
	respondWithJSON(w, http.StatusOK, out)
}

type AdminBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

func (h *Handler) HandleAdminBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondWithError(w, domain.NewValidationError("booking id must be a uuid"))
		return
	}

	var req AdminBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return
	}

	booking, err := h.bookings.AdminUpdateStatus(r.Context(), id, domain.BookingStatus(req.Status))
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bookingResponse(booking))
}

func bookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID.String(),
		CustomerName:  b.CustomerName,
		CustomerPhone: b.CustomerPhone,
		CustomerEmail: b.CustomerEmail,
		Date:          b.Date.Format("2006-01-02"),
		StartTime:     b.StartTime,
		Duration:      b.Duration,
		Branch:        b.Branch,
		TotalAmount:   b.TotalAmount,
		Notes:         b.Notes,
		Status:        string(b.Status),
	}
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date must be YYYY-MM-DD")
	}
	return date, nil
}

func validateStartTime(raw string) error {
	if _, err := time.Parse("15:04", raw); err != nil {
		return domain.NewValidationError("start_time must be HH:MM")
	}
	return nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
