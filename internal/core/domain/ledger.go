// Package domain defines the domain models for the payments service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerStatus represents the current state of a payment attempt in its lifecycle
type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerCompleted LedgerStatus = "completed"
	LedgerFailed    LedgerStatus = "failed"
)

// TransactionType identifies the kind of entity a payment attempt belongs to.
// It is a closed set; callbacks carrying any other value are rejected.
type TransactionType string

const (
	TypeBooking     TransactionType = "booking"
	TypeGiftVoucher TransactionType = "gift_voucher"
)

// Valid reports whether t is a member of the closed set of transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeBooking || t == TypeGiftVoucher
}

// LedgerEntry records a single payment-gateway initiation attempt and its
// eventual outcome. The gateway-issued CheckoutRequestID is the sole external
// correlation key: callbacks and status polls both look entries up by it.
type LedgerEntry struct {
	ID                uuid.UUID
	CheckoutRequestID string
	MerchantRequestID string
	Amount            int64
	Phone             string
	ReferenceID       uuid.UUID
	TransactionType   TransactionType
	Status            LedgerStatus

	// Set by the callback handler only, nil until a terminal callback lands.
	ResultCode      *int
	ResultDesc      *string
	ReceiptNumber   *string
	TransactionDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLedgerEntry creates a pending entry for a successful gateway initiation.
func NewLedgerEntry(checkoutRequestID, merchantRequestID string, amount int64, phone string, referenceID uuid.UUID, txType TransactionType) *LedgerEntry {
	now := time.Now().UTC()
	return &LedgerEntry{
		ID:                uuid.New(),
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: merchantRequestID,
		Amount:            amount,
		Phone:             phone,
		ReferenceID:       referenceID,
		TransactionType:   txType,
		Status:            LedgerPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsTerminal reports whether the entry has reached a state it can never leave.
func (e *LedgerEntry) IsTerminal() bool {
	return e.Status == LedgerCompleted || e.Status == LedgerFailed
}
