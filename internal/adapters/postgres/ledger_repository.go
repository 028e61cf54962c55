package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

type LedgerRepository struct {
	q Executor
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

const ledgerColumns = `id, checkout_request_id, merchant_request_id, amount, phone,
	reference_id, transaction_type, status, result_code, result_desc,
	receipt_number, transaction_date, created_at, updated_at`

// Create saves a new pending ledger entry. Exactly one entry exists per
// initiation attempt; a duplicate checkout request id is a conflict.
func (r *LedgerRepository) Create(ctx context.Context, e *domain.LedgerEntry) error {
	query := `INSERT INTO mpesa_transactions (
				id, checkout_request_id, merchant_request_id, amount, phone,
				reference_id, transaction_type, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		e.ID,
		e.CheckoutRequestID,
		e.MerchantRequestID,
		e.Amount,
		e.Phone,
		e.ReferenceID,
		e.TransactionType,
		e.Status,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewValidationError("a payment attempt with this checkout request id already exists")
		}
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// FindByCheckoutRequestID retrieves an entry by the gateway correlation key.
func (r *LedgerRepository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
			FROM mpesa_transactions
			WHERE checkout_request_id = $1
			`

	row := r.q.QueryRow(ctx, query, checkoutRequestID)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, domain.NewNotFoundError("no payment attempt for checkout request id " + checkoutRequestID)
		}
		return nil, fmt.Errorf("query ledger entry: %w", err)
	}
	return entry, nil
}

// MarkCompleted records a successful callback in one conditional update. It
// returns false when the entry was already terminal, which makes replayed
// callbacks provable no-ops.
func (r *LedgerRepository) MarkCompleted(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc, receiptNumber, phone string, amount int64, transactionDate time.Time) (bool, error) {
	query := `
			UPDATE mpesa_transactions
			SET status = $1, result_code = $2, result_desc = $3, receipt_number = $4,
				phone = $5, amount = $6, transaction_date = $7, updated_at = NOW()
			WHERE checkout_request_id = $8 AND status = $9
	`

	cmdTag, err := r.q.Exec(ctx, query,
		domain.LedgerCompleted,
		resultCode,
		resultDesc,
		receiptNumber,
		phone,
		amount,
		transactionDate,
		checkoutRequestID,
		domain.LedgerPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete ledger entry: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkFailed records a failed callback, conditional on the entry still pending.
func (r *LedgerRepository) MarkFailed(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc string) (bool, error) {
	query := `
			UPDATE mpesa_transactions
			SET status = $1, result_code = $2, result_desc = $3, updated_at = NOW()
			WHERE checkout_request_id = $4 AND status = $5
	`

	cmdTag, err := r.q.Exec(ctx, query,
		domain.LedgerFailed,
		resultCode,
		resultDesc,
		checkoutRequestID,
		domain.LedgerPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to fail ledger entry: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// FindStalePending lists pending entries older than the cutoff, oldest first,
// for the reconciler to chase with a gateway status query.
func (r *LedgerRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.LedgerEntry, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `SELECT ` + ledgerColumns + `
			FROM mpesa_transactions
			WHERE status = $1 AND created_at < $2
			ORDER BY created_at ASC
			LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, domain.LedgerPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.LedgerEntry, error) {
		return scanLedgerEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan stale pending entries: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.CheckoutRequestID,
		&e.MerchantRequestID,
		&e.Amount,
		&e.Phone,
		&e.ReferenceID,
		&e.TransactionType,
		&e.Status,
		&e.ResultCode,
		&e.ResultDesc,
		&e.ReceiptNumber,
		&e.TransactionDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
