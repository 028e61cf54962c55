package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
)

// LedgerRepository stores one entry per payment initiation attempt, keyed
// externally by the gateway-issued checkout request id.
//
// MarkCompleted and MarkFailed are conditional: they only apply when the
// entry is still pending and report whether a row actually changed, so a
// replayed callback is a provable no-op.
type LedgerRepository interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.LedgerEntry, error)
	MarkCompleted(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc, receiptNumber, phone string, amount int64, transactionDate time.Time) (bool, error)
	MarkFailed(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc string) (bool, error)
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.LedgerEntry, error)
}

// BookingRepository persists bookings and answers the slot-collision check.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error
	SlotTaken(ctx context.Context, date time.Time, startTime, branch string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Booking, error)
}

// VoucherRepository persists gift vouchers. Redeem is a compare-and-swap:
// it flips active → redeemed and reports false when the voucher was not
// active anymore, closing the concurrent-redemption race at the data layer.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *domain.Voucher) error
	FindByCode(ctx context.Context, code string) (*domain.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error)
	MarkPaymentCompleted(ctx context.Context, id uuid.UUID) error
	Redeem(ctx context.Context, id uuid.UUID) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Voucher, error)
}

// PaymentTransactionRepository keeps the gateway-agnostic payment records.
type PaymentTransactionRepository interface {
	Create(ctx context.Context, tx *domain.PaymentTransaction) error
	MarkCompleted(ctx context.Context, referenceID uuid.UUID, txType domain.TransactionType, transactionID string, completedAt time.Time) error
	FindByReference(ctx context.Context, referenceID uuid.UUID, txType domain.TransactionType) (*domain.PaymentTransaction, error)
}

// TxCoordinator runs voucher and booking writes inside one database
// transaction. Voucher redemption needs this so a booking can never be
// committed without the voucher flip that pays for it.
type TxCoordinator interface {
	WithTransaction(ctx context.Context, fn func(vouchers VoucherRepository, bookings BookingRepository) error) error
}
