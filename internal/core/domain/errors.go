package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeGatewayAuth       = "GATEWAY_AUTH_ERROR"
	ErrCodeGatewayRequest    = "GATEWAY_REQUEST_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeVoucherExpired    = "VOUCHER_EXPIRED"
	ErrCodeInsufficientValue = "INSUFFICIENT_VOUCHER_VALUE"
	ErrCodeAlreadyRedeemed   = "ALREADY_REDEEMED"
	ErrCodeSlotTaken         = "SLOT_TAKEN"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: message}
}

func NewGatewayAuthError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeGatewayAuth,
		Message: "failed to authenticate with payment gateway",
		Err:     err,
	}
}

func NewGatewayRequestError(message string, err error) *DomainError {
	return &DomainError{Code: ErrCodeGatewayRequest, Message: message, Err: err}
}

func NewNotFoundError(message string) *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: message}
}

// NewVoucherNotFoundError deliberately does not distinguish an unknown code
// from a consumed one. The caller cannot act differently on the two cases and
// the distinction would leak which codes exist.
func NewVoucherNotFoundError() *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: "voucher not found or already used"}
}

func NewVoucherExpiredError() *DomainError {
	return &DomainError{Code: ErrCodeVoucherExpired, Message: "voucher has expired"}
}

func NewInsufficientValueError(voucherAmount, price int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInsufficientValue,
		Message: fmt.Sprintf("voucher value KSh %d does not cover the KSh %d price for the selected duration", voucherAmount, price),
	}
}

func NewAlreadyRedeemedError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAlreadyRedeemed,
		Message: fmt.Sprintf("voucher %s has already been redeemed", code),
	}
}

func NewSlotTakenError() *DomainError {
	return &DomainError{Code: ErrCodeSlotTaken, Message: "the selected time slot is no longer available"}
}

func NewInvalidTransitionError(entity, from, to string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("%s cannot transition from %s to %s", entity, from, to),
	}
}

func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Code: ErrCodeUnauthorized, Message: message}
}

func NewInternalError(err error) *DomainError {
	return &DomainError{Code: ErrCodeInternal, Message: "internal error", Err: err}
}

// IsErrorCode reports whether err is a DomainError carrying the given code.
func IsErrorCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
