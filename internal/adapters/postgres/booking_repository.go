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

type BookingRepository struct {
	q Executor
}

func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{q: db.Pool}
}

var _ ports.BookingRepository = (*BookingRepository)(nil)

const bookingColumns = `id, customer_name, customer_phone, customer_email, date,
	start_time, duration, branch, total_amount, notes, status, created_at, updated_at`

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.Exec(ctx, query,
		b.ID,
		b.CustomerName,
		b.CustomerPhone,
		b.CustomerEmail,
		b.Date,
		b.StartTime,
		b.Duration,
		b.Branch,
		b.TotalAmount,
		b.Notes,
		b.Status,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	row := r.q.QueryRow(ctx, query, id)
	booking, err := scanBooking(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, domain.NewNotFoundError("booking not found")
		}
		return nil, fmt.Errorf("query booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewNotFoundError("booking not found")
	}
	return nil
}

// SlotTaken checks for an exact start-time collision at the branch. Bookings
// pending payment hold their slot too, so a racing guest cannot steal it.
// Duration overlap is intentionally not considered; the schedule runs on a
// fixed slot grid.
func (r *BookingRepository) SlotTaken(ctx context.Context, date time.Time, startTime, branch string) (bool, error) {
	query := `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE date = $1 AND start_time = $2 AND branch = $3
					AND status IN ($4, $5)
			)
	`

	var taken bool
	err := r.q.QueryRow(ctx, query, date, startTime, branch, domain.BookingPending, domain.BookingConfirmed).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("query slot collision: %w", err)
	}
	return taken, nil
}

func (r *BookingRepository) List(ctx context.Context, limit, offset int) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
			FROM bookings
			ORDER BY date DESC, start_time DESC
			LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}

	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Booking, error) {
		return scanBooking(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID,
		&b.CustomerName,
		&b.CustomerPhone,
		&b.CustomerEmail,
		&b.Date,
		&b.StartTime,
		&b.Duration,
		&b.Branch,
		&b.TotalAmount,
		&b.Notes,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
