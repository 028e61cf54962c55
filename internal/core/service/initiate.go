// Package service contains the reconciliation core: payment initiation, the
// callback handler, status reads and voucher redemption.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// InitiateCommand is a request to start a payment for a booking or voucher.
type InitiateCommand struct {
	Phone           string
	Amount          int64
	ReferenceID     uuid.UUID
	TransactionType domain.TransactionType
}

type InitiateService struct {
	ledger   ports.LedgerRepository
	payments ports.PaymentTransactionRepository
	gateway  ports.GatewayPort
	logger   *slog.Logger
}

func NewInitiateService(
	ledger ports.LedgerRepository,
	payments ports.PaymentTransactionRepository,
	gateway ports.GatewayPort,
	logger *slog.Logger,
) *InitiateService {
	return &InitiateService{
		ledger:   ledger,
		payments: payments,
		gateway:  gateway,
		logger:   logger,
	}
}

// Initiate validates the command, pushes the payment prompt to the customer's
// phone and, only on a gateway-acknowledged initiation, records one pending
// ledger entry plus the gateway-agnostic payment transaction. A gateway
// failure leaves no trace; the user simply re-initiates.
func (s *InitiateService) Initiate(ctx context.Context, cmd InitiateCommand) (*domain.LedgerEntry, error) {
	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	phone, err := domain.NormalizePhone(cmd.Phone)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.STKPush(ctx, domain.STKPushRequest{
		Phone:            phone,
		Amount:           cmd.Amount,
		AccountReference: cmd.ReferenceID.String(),
		Description:      paymentDescription(cmd.TransactionType),
	})
	if err != nil {
		s.logger.Warn("payment initiation rejected by gateway",
			"reference_id", cmd.ReferenceID,
			"transaction_type", cmd.TransactionType,
			"error", err,
		)
		return nil, err
	}

	entry := domain.NewLedgerEntry(
		result.CheckoutRequestID,
		result.MerchantRequestID,
		cmd.Amount,
		phone,
		cmd.ReferenceID,
		cmd.TransactionType,
	)

	if err := s.ledger.Create(ctx, entry); err != nil {
		// The prompt is already on the customer's phone at this point. The
		// entry is the only way the callback can find its target, so this is
		// a loud failure that needs support reconciliation.
		s.logger.Error("gateway accepted initiation but ledger write failed",
			"checkout_request_id", result.CheckoutRequestID,
			"reference_id", cmd.ReferenceID,
			"error", err,
		)
		return nil, domain.NewInternalError(err)
	}

	if err := s.payments.Create(ctx, domain.NewPaymentTransaction(cmd.ReferenceID, cmd.TransactionType, cmd.Amount)); err != nil {
		s.logger.Error("failed to create payment transaction record",
			"reference_id", cmd.ReferenceID,
			"error", err,
		)
		return nil, domain.NewInternalError(err)
	}

	s.logger.Info("payment initiated",
		"checkout_request_id", entry.CheckoutRequestID,
		"reference_id", cmd.ReferenceID,
		"transaction_type", cmd.TransactionType,
		"amount", cmd.Amount,
	)

	return entry, nil
}

func (s *InitiateService) validate(cmd InitiateCommand) error {
	if cmd.Phone == "" {
		return domain.NewValidationError("phone is required")
	}
	if cmd.Amount <= 0 {
		return domain.NewValidationError("amount must be positive")
	}
	if cmd.ReferenceID == uuid.Nil {
		return domain.NewValidationError("reference id is required")
	}
	if !cmd.TransactionType.Valid() {
		return domain.NewValidationError(fmt.Sprintf("unknown transaction type %q", cmd.TransactionType))
	}
	return nil
}

func paymentDescription(t domain.TransactionType) string {
	if t == domain.TypeGiftVoucher {
		return "Gift voucher purchase"
	}
	return "Massage booking"
}
