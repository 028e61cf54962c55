package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the current state of a booking in its lifecycle
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Durations (minutes) a session can be booked for, with their KSh price tiers.
var sessionPrices = map[int]int64{
	60:  3500,
	90:  5000,
	120: 6500,
}

// PriceForDuration returns the price tier for a session duration.
func PriceForDuration(minutes int) (int64, bool) {
	price, ok := sessionPrices[minutes]
	return price, ok
}

// Booking represents a massage appointment. Guest-created bookings start
// pending and are confirmed by a successful payment callback or by redeeming
// a paid gift voucher; completed and cancelled are reachable only through
// explicit admin transitions.
type Booking struct {
	ID            uuid.UUID
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Date          time.Time
	StartTime     string // HH:MM, slot grid
	Duration      int    // minutes
	Branch        string
	TotalAmount   int64
	Notes         string
	Status        BookingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewBooking(name, phone, email string, date time.Time, startTime string, duration int, branch string, amount int64, notes string) (*Booking, error) {
	if name == "" {
		return nil, NewValidationError("customer name is required")
	}
	if _, ok := PriceForDuration(duration); !ok {
		return nil, NewValidationError("duration must be one of the offered session lengths")
	}
	if branch == "" {
		return nil, NewValidationError("branch is required")
	}
	if amount < 0 {
		return nil, NewValidationError("amount must not be negative")
	}
	now := time.Now().UTC()
	return &Booking{
		ID:            uuid.New(),
		CustomerName:  name,
		CustomerPhone: phone,
		CustomerEmail: email,
		Date:          date,
		StartTime:     startTime,
		Duration:      duration,
		Branch:        branch,
		TotalAmount:   amount,
		Notes:         notes,
		Status:        BookingPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransitionTo validates a booking status change. Completed and cancelled
// are terminal; a pending booking is confirmed by payment, voucher redemption
// or an admin, and only an admin moves a confirmed booking onward.
func (b *Booking) CanTransitionTo(target BookingStatus) error {
	switch b.Status {
	case BookingPending:
		if target == BookingConfirmed || target == BookingCancelled {
			return nil
		}
	case BookingConfirmed:
		if target == BookingCompleted || target == BookingCancelled {
			return nil
		}
	}
	return NewInvalidTransitionError("booking", string(b.Status), string(target))
}

func (b *Booking) IsTerminal() bool {
	return b.Status == BookingCompleted || b.Status == BookingCancelled
}
