package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// RedeemCommand converts a paid gift voucher into a confirmed zero-cost booking.
type RedeemCommand struct {
	Code          string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Date          time.Time
	StartTime     string
	Duration      int
}

type RedemptionService struct {
	vouchers ports.VoucherRepository
	bookings ports.BookingRepository
	tx       ports.TxCoordinator
	logger   *slog.Logger
	now      func() time.Time
}

func NewRedemptionService(
	vouchers ports.VoucherRepository,
	bookings ports.BookingRepository,
	tx ports.TxCoordinator,
	logger *slog.Logger,
) *RedemptionService {
	return &RedemptionService{
		vouchers: vouchers,
		bookings: bookings,
		tx:       tx,
		logger:   logger,
		now:      time.Now,
	}
}

// Validate is the code-entry step: it confirms the voucher exists, is paid,
// still active and not expired, and returns it for display. Expiry gets its
// own error because the remediation differs from a consumed code.
func (s *RedemptionService) Validate(ctx context.Context, code string) (*domain.Voucher, error) {
	if code == "" {
		return nil, domain.NewValidationError("voucher code is required")
	}

	voucher, err := s.vouchers.FindByCode(ctx, domain.NormalizeVoucherCode(code))
	if err != nil {
		return nil, err
	}

	if err := voucher.Redeemable(s.now().UTC()); err != nil {
		return nil, err
	}

	return voucher, nil
}

// Redeem performs the validated → booked transition. The voucher flip and the
// booking insert run in one database transaction, with the flip itself a
// compare-and-swap on status=active: of two concurrent redemption attempts at
// most one commits, and a failed booking insert rolls the flip back so the
// code is never lost to a half-finished attempt.
func (s *RedemptionService) Redeem(ctx context.Context, cmd RedeemCommand) (*domain.Booking, error) {
	voucher, err := s.Validate(ctx, cmd.Code)
	if err != nil {
		return nil, err
	}

	price, ok := domain.PriceForDuration(cmd.Duration)
	if !ok {
		return nil, domain.NewValidationError("duration must be one of the offered session lengths")
	}
	if voucher.Amount < price {
		return nil, domain.NewInsufficientValueError(voucher.Amount, price)
	}

	if cmd.CustomerName == "" {
		cmd.CustomerName = voucher.RecipientName
	}

	taken, err := s.bookings.SlotTaken(ctx, cmd.Date, cmd.StartTime, voucher.Branch)
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
		voucher.Branch,
		0,
		fmt.Sprintf("Redeemed gift voucher %s", voucher.Code),
	)
	if err != nil {
		return nil, err
	}
	// The voucher itself already proved payment; skip the payment path.
	booking.Status = domain.BookingConfirmed

	err = s.tx.WithTransaction(ctx, func(vouchers ports.VoucherRepository, bookings ports.BookingRepository) error {
		redeemed, err := vouchers.Redeem(ctx, voucher.ID)
		if err != nil {
			return err
		}
		if !redeemed {
			return domain.NewAlreadyRedeemedError(voucher.Code)
		}
		return bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("voucher redeemed",
		"voucher_code", voucher.Code,
		"booking_id", booking.ID,
		"date", cmd.Date.Format("2006-01-02"),
		"start_time", cmd.StartTime,
	)

	return booking, nil
}
