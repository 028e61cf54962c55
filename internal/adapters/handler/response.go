package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prive-wellness/payments-service/internal/core/domain"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else {
		if apiErr, ok := data.(*APIError); ok {
			response.Error = apiErr
		}
	}

	_ = json.NewEncoder(w).Encode(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	code := domain.ErrCodeInternal
	message := err.Error()
	status := http.StatusInternalServerError

	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message

		switch domainErr.Code {
		case domain.ErrCodeValidation:
			status = http.StatusBadRequest
		case domain.ErrCodeNotFound:
			status = http.StatusNotFound
		case domain.ErrCodeVoucherExpired, domain.ErrCodeInsufficientValue,
			domain.ErrCodeAlreadyRedeemed, domain.ErrCodeSlotTaken,
			domain.ErrCodeInvalidTransition:
			status = http.StatusConflict
		case domain.ErrCodeGatewayAuth, domain.ErrCodeGatewayRequest:
			// Upstream failure; the user retries manually.
			status = http.StatusBadGateway
		case domain.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case domain.ErrCodeTimeout:
			status = http.StatusGatewayTimeout
		default:
			status = http.StatusInternalServerError
		}
	}

	respondWithJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}
