package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// CallbackService is the single writer of terminal payment state. The gateway
// may deliver a result zero, one or many times, concurrently with status
// polls; every path through Process is safe under that.
type CallbackService struct {
	ledger   ports.LedgerRepository
	bookings ports.BookingRepository
	vouchers ports.VoucherRepository
	payments ports.PaymentTransactionRepository
	logger   *slog.Logger
}

func NewCallbackService(
	ledger ports.LedgerRepository,
	bookings ports.BookingRepository,
	vouchers ports.VoucherRepository,
	payments ports.PaymentTransactionRepository,
	logger *slog.Logger,
) *CallbackService {
	return &CallbackService{
		ledger:   ledger,
		bookings: bookings,
		vouchers: vouchers,
		payments: payments,
		logger:   logger,
	}
}

// Process applies a gateway result to the ledger and propagates a success to
// the owning booking or voucher.
//
// The returned error is for logging only: the HTTP layer acknowledges the
// gateway regardless, because the gateway cannot be told "try later" and
// must never be provoked into a retry storm.
//
// Idempotency rests on the ledger's conditional terminal update: a replayed
// callback sees zero rows affected and stops before any entity writes.
func (s *CallbackService) Process(ctx context.Context, cb *domain.GatewayCallback) error {
	entry, err := s.ledger.FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeNotFound) {
			// Unknown id: not our payment, or the ledger write never landed.
			// Acknowledge and move on; retrying would not help the gateway.
			s.logger.Warn("callback for unknown checkout request id",
				"checkout_request_id", cb.CheckoutRequestID,
				"result_code", cb.ResultCode,
			)
			return nil
		}
		return fmt.Errorf("load ledger entry: %w", err)
	}

	if entry.IsTerminal() {
		s.logger.Info("replayed callback for terminal entry",
			"checkout_request_id", cb.CheckoutRequestID,
			"status", entry.Status,
		)
		return nil
	}

	if !cb.Success() {
		applied, err := s.ledger.MarkFailed(ctx, cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc)
		if err != nil {
			return fmt.Errorf("record failed payment: %w", err)
		}
		if applied {
			s.logger.Info("payment failed",
				"checkout_request_id", cb.CheckoutRequestID,
				"result_code", cb.ResultCode,
				"result_desc", cb.ResultDesc,
			)
		}
		// The owning entity stays pending so the user can retry or cancel.
		return nil
	}

	transactionDate := time.Now().UTC()
	if cb.TransactionDate != nil {
		transactionDate = *cb.TransactionDate
	}
	amount := cb.Amount
	if amount == 0 {
		amount = entry.Amount
	}
	phone := cb.Phone
	if phone == "" {
		phone = entry.Phone
	}

	applied, err := s.ledger.MarkCompleted(ctx, cb.CheckoutRequestID,
		cb.ResultCode, cb.ResultDesc, cb.ReceiptNumber, phone, amount, transactionDate)
	if err != nil {
		return fmt.Errorf("record completed payment: %w", err)
	}
	if !applied {
		// Lost the race against a concurrent delivery of the same callback;
		// the winner handles the entity writes.
		s.logger.Info("concurrent callback already completed entry",
			"checkout_request_id", cb.CheckoutRequestID,
		)
		return nil
	}

	if err := s.confirmOwningEntity(ctx, entry, cb.ReceiptNumber, transactionDate); err != nil {
		return err
	}

	s.logger.Info("payment completed",
		"checkout_request_id", cb.CheckoutRequestID,
		"reference_id", entry.ReferenceID,
		"transaction_type", entry.TransactionType,
		"receipt", cb.ReceiptNumber,
	)
	return nil
}

// confirmOwningEntity dispatches on the closed transaction-type union.
func (s *CallbackService) confirmOwningEntity(ctx context.Context, entry *domain.LedgerEntry, receipt string, completedAt time.Time) error {
	switch entry.TransactionType {
	case domain.TypeBooking:
		booking, err := s.bookings.FindByID(ctx, entry.ReferenceID)
		if err != nil {
			return fmt.Errorf("load booking %s: %w", entry.ReferenceID, err)
		}
		if err := booking.CanTransitionTo(domain.BookingConfirmed); err != nil {
			// Paid but not confirmable (e.g. admin cancelled meanwhile).
			// Ledger already records the money; flag for support.
			s.logger.Error("paid booking not confirmable",
				"booking_id", booking.ID,
				"status", booking.Status,
				"receipt", receipt,
			)
			return err
		}
		if err := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingConfirmed); err != nil {
			return fmt.Errorf("confirm booking %s: %w", booking.ID, err)
		}

	case domain.TypeGiftVoucher:
		if err := s.vouchers.MarkPaymentCompleted(ctx, entry.ReferenceID); err != nil {
			return fmt.Errorf("complete voucher payment %s: %w", entry.ReferenceID, err)
		}

	default:
		return domain.NewValidationError(fmt.Sprintf("unknown transaction type %q on ledger entry", entry.TransactionType))
	}

	if err := s.payments.MarkCompleted(ctx, entry.ReferenceID, entry.TransactionType, receipt, completedAt); err != nil {
		return fmt.Errorf("complete payment transaction: %w", err)
	}
	return nil
}
