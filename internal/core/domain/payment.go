package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTransactionStatus is the state of the gateway-agnostic payment record
type PaymentTransactionStatus string

const (
	PaymentTxPending   PaymentTransactionStatus = "pending"
	PaymentTxCompleted PaymentTransactionStatus = "completed"
	PaymentTxFailed    PaymentTransactionStatus = "failed"
)

// PaymentTransaction is a gateway-agnostic record of a payment used for
// reconciliation and audit. It stays consistent with the ledger entry for the
// same reference and transaction type but carries no gateway specifics beyond
// the receipt used as TransactionID.
type PaymentTransaction struct {
	ID              uuid.UUID
	ReferenceID     uuid.UUID
	TransactionType TransactionType
	Amount          int64
	PaymentMethod   string
	Status          PaymentTransactionStatus
	TransactionID   *string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const PaymentMethodMpesa = "mpesa"

func NewPaymentTransaction(referenceID uuid.UUID, txType TransactionType, amount int64) *PaymentTransaction {
	now := time.Now().UTC()
	return &PaymentTransaction{
		ID:              uuid.New(),
		ReferenceID:     referenceID,
		TransactionType: txType,
		Amount:          amount,
		PaymentMethod:   PaymentMethodMpesa,
		Status:          PaymentTxPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
