package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

type PaymentTransactionRepository struct {
	q Executor
}

func NewPaymentTransactionRepository(db *DB) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{q: db.Pool}
}

var _ ports.PaymentTransactionRepository = (*PaymentTransactionRepository)(nil)

const paymentColumns = `id, reference_id, transaction_type, amount, payment_method,
	status, transaction_id, completed_at, created_at, updated_at`

func (r *PaymentTransactionRepository) Create(ctx context.Context, p *domain.PaymentTransaction) error {
	// One record per (reference, type); a re-initiated payment for the same
	// entity keeps its original record.
	query := `INSERT INTO payment_transactions (` + paymentColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (reference_id, transaction_type) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.ReferenceID,
		p.TransactionType,
		p.Amount,
		p.PaymentMethod,
		p.Status,
		p.TransactionID,
		p.CompletedAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

// MarkCompleted records the gateway receipt and completion instant against
// the record for the given reference, keeping it consistent with the ledger.
func (r *PaymentTransactionRepository) MarkCompleted(ctx context.Context, referenceID uuid.UUID, txType domain.TransactionType, transactionID string, completedAt time.Time) error {
	query := `
			UPDATE payment_transactions
			SET status = $1, transaction_id = $2, completed_at = $3, updated_at = NOW()
			WHERE reference_id = $4 AND transaction_type = $5
	`

	cmdTag, err := r.q.Exec(ctx, query,
		domain.PaymentTxCompleted,
		transactionID,
		completedAt,
		referenceID,
		txType,
	)
	if err != nil {
		return fmt.Errorf("failed to complete payment transaction: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewNotFoundError("no payment transaction for reference " + referenceID.String())
	}
	return nil
}

func (r *PaymentTransactionRepository) FindByReference(ctx context.Context, referenceID uuid.UUID, txType domain.TransactionType) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + `
			FROM payment_transactions
			WHERE reference_id = $1 AND transaction_type = $2
	`

	row := r.q.QueryRow(ctx, query, referenceID, txType)

	var p domain.PaymentTransaction
	err := row.Scan(
		&p.ID,
		&p.ReferenceID,
		&p.TransactionType,
		&p.Amount,
		&p.PaymentMethod,
		&p.Status,
		&p.TransactionID,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, domain.NewNotFoundError("payment transaction not found")
		}
		return nil, fmt.Errorf("query payment transaction: %w", err)
	}
	return &p, nil
}
