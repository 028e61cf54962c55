package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

type CreateBookingCommand struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Date          time.Time
	StartTime     string
	Duration      int
	Branch        string
	Notes         string
}

type BookingService struct {
	bookings ports.BookingRepository
	logger   *slog.Logger
}

func NewBookingService(bookings ports.BookingRepository, logger *slog.Logger) *BookingService {
	return &BookingService{bookings: bookings, logger: logger}
}

// Create makes a pending booking priced by duration. The booking holds its
// slot immediately; payment initiation and the eventual callback confirm it.
func (s *BookingService) Create(ctx context.Context, cmd CreateBookingCommand) (*domain.Booking, error) {
	price, ok := domain.PriceForDuration(cmd.Duration)
	if !ok {
		return nil, domain.NewValidationError("duration must be one of the offered session lengths")
	}

	taken, err := s.bookings.SlotTaken(ctx, cmd.Date, cmd.StartTime, cmd.Branch)
	if err != nil {
		return nil, fmt.Errorf("check slot availability: %w", err)
	}
	if taken {
		return nil, domain.NewSlotTakenError()
	}

	booking, err := domain.NewBooking(
		cmd.CustomerName,
		cmd.CustomerPhone,
		cmd.CustomerEmail,
		cmd.Date,
		cmd.StartTime,
		cmd.Duration,
		cmd.Branch,
		price,
		cmd.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"date", booking.Date.Format("2006-01-02"),
		"start_time", booking.StartTime,
		"branch", booking.Branch,
		"amount", booking.TotalAmount,
	)
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.bookings.FindByID(ctx, id)
}

func (s *BookingService) List(ctx context.Context, limit, offset int) ([]*domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.bookings.List(ctx, limit, offset)
}

// AdminUpdateStatus applies a manual status change, honoring the booking
// state machine. This is the only route to completed and cancelled.
func (s *BookingService) AdminUpdateStatus(ctx context.Context, id uuid.UUID, target domain.BookingStatus) (*domain.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := booking.CanTransitionTo(target); err != nil {
		return nil, err
	}

	if err := s.bookings.UpdateStatus(ctx, id, target); err != nil {
		return nil, err
	}

	s.logger.Info("booking status changed by admin",
		"booking_id", id,
		"from", booking.Status,
		"to", target,
	)
	booking.Status = target
	return booking, nil
}
