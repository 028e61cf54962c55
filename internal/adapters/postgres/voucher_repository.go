package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

type VoucherRepository struct {
	q Executor
}

func NewVoucherRepository(db *DB) *VoucherRepository {
	return &VoucherRepository{q: db.Pool}
}

var _ ports.VoucherRepository = (*VoucherRepository)(nil)

const voucherColumns = `id, code, sender_name, sender_phone, recipient_name,
	recipient_email, amount, branch, message, status, payment_status,
	expires_at, created_at, updated_at`

func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	query := `INSERT INTO gift_vouchers (` + voucherColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.Exec(ctx, query,
		v.ID,
		v.Code,
		v.SenderName,
		v.SenderPhone,
		v.RecipientName,
		v.RecipientEmail,
		v.Amount,
		v.Branch,
		v.Message,
		v.Status,
		v.PaymentStatus,
		v.ExpiresAt,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewValidationError("voucher code collision, retry the purchase")
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM gift_vouchers WHERE code = $1`

	row := r.q.QueryRow(ctx, query, domain.NormalizeVoucherCode(code))
	voucher, err := scanVoucher(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, domain.NewVoucherNotFoundError()
		}
		return nil, fmt.Errorf("query voucher by code: %w", err)
	}
	return voucher, nil
}

func (r *VoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM gift_vouchers WHERE id = $1`

	row := r.q.QueryRow(ctx, query, id)
	voucher, err := scanVoucher(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, domain.NewVoucherNotFoundError()
		}
		return nil, fmt.Errorf("query voucher by id: %w", err)
	}
	return voucher, nil
}

func (r *VoucherRepository) MarkPaymentCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
			UPDATE gift_vouchers
			SET payment_status = $1, updated_at = NOW()
			WHERE id = $2
	`

	cmdTag, err := r.q.Exec(ctx, query, domain.VoucherPaymentCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to mark voucher payment completed: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewVoucherNotFoundError()
	}
	return nil
}

// Redeem flips active → redeemed with a compare-and-swap. Of two concurrent
// redemption attempts only one sees RowsAffected > 0; the loser must treat
// the voucher as already consumed.
func (r *VoucherRepository) Redeem(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
			UPDATE gift_vouchers
			SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
	`

	cmdTag, err := r.q.Exec(ctx, query, domain.VoucherRedeemed, id, domain.VoucherActive)
	if err != nil {
		return false, fmt.Errorf("failed to redeem voucher: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// Cancel is an admin action; only active vouchers can be cancelled.
func (r *VoucherRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
			UPDATE gift_vouchers
			SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
	`

	cmdTag, err := r.q.Exec(ctx, query, domain.VoucherCancelled, id, domain.VoucherActive)
	if err != nil {
		return false, fmt.Errorf("failed to cancel voucher: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// ExpireDue bulk-expires active vouchers whose validity window has passed.
func (r *VoucherRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
			UPDATE gift_vouchers
			SET status = $1, updated_at = NOW()
			WHERE status = $2 AND expires_at < $3
	`

	cmdTag, err := r.q.Exec(ctx, query, domain.VoucherExpired, domain.VoucherActive, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire vouchers: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *VoucherRepository) List(ctx context.Context, limit, offset int) ([]*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + `
			FROM gift_vouchers
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query vouchers: %w", err)
	}

	vouchers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Voucher, error) {
		return scanVoucher(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan vouchers: %w", err)
	}
	return vouchers, nil
}

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	var v domain.Voucher
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.SenderName,
		&v.SenderPhone,
		&v.RecipientName,
		&v.RecipientEmail,
		&v.Amount,
		&v.Branch,
		&v.Message,
		&v.Status,
		&v.PaymentStatus,
		&v.ExpiresAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
