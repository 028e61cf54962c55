package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// TransactionCoordinator manages transactions across multiple repositories.
// Voucher redemption relies on it: the voucher compare-and-swap and the
// zero-amount booking insert commit or roll back together.
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(db *DB) *TransactionCoordinator {
	return &TransactionCoordinator{pool: db.Pool}
}

var _ ports.TxCoordinator = (*TransactionCoordinator)(nil)

// WithTransaction executes fn within a database transaction. The repository
// instances handed to fn run their statements on that transaction.
func (tc *TransactionCoordinator) WithTransaction(
	ctx context.Context,
	fn func(vouchers ports.VoucherRepository, bookings ports.BookingRepository) error,
) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txVoucherRepo := &VoucherRepository{q: tx}
	txBookingRepo := &BookingRepository{q: tx}

	if err := fn(txVoucherRepo, txBookingRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
