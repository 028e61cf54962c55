package service

import (
	"context"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// PaymentStatusView is what a polling client gets to see of a ledger entry.
type PaymentStatusView struct {
	CheckoutRequestID string
	Status            domain.LedgerStatus
	ResultCode        *int
	ResultDesc        *string
}

// StatusService serves the read side of the poller race: a single read of the
// ledger entry by checkout request id, nothing else.
type StatusService struct {
	ledger ports.LedgerRepository
}

func NewStatusService(ledger ports.LedgerRepository) *StatusService {
	return &StatusService{ledger: ledger}
}

func (s *StatusService) Check(ctx context.Context, checkoutRequestID string) (*PaymentStatusView, error) {
	if checkoutRequestID == "" {
		return nil, domain.NewValidationError("checkout request id is required")
	}

	entry, err := s.ledger.FindByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	return &PaymentStatusView{
		CheckoutRequestID: entry.CheckoutRequestID,
		Status:            entry.Status,
		ResultCode:        entry.ResultCode,
		ResultDesc:        entry.ResultDesc,
	}, nil
}
