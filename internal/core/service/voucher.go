package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

type PurchaseVoucherCommand struct {
	SenderName     string
	SenderPhone    string
	RecipientName  string
	RecipientEmail string
	Amount         int64
	Branch         string
	Message        string
}

type VoucherService struct {
	vouchers ports.VoucherRepository
	logger   *slog.Logger
}

func NewVoucherService(vouchers ports.VoucherRepository, logger *slog.Logger) *VoucherService {
	return &VoucherService{vouchers: vouchers, logger: logger}
}

// Purchase creates an active voucher awaiting payment. It only becomes
// redeemable once the payment callback flips its payment status.
func (s *VoucherService) Purchase(ctx context.Context, cmd PurchaseVoucherCommand) (*domain.Voucher, error) {
	voucher, err := domain.NewVoucher(
		cmd.SenderName,
		cmd.SenderPhone,
		cmd.RecipientName,
		cmd.RecipientEmail,
		cmd.Amount,
		cmd.Branch,
		cmd.Message,
	)
	if err != nil {
		return nil, err
	}

	if err := s.vouchers.Create(ctx, voucher); err != nil {
		return nil, fmt.Errorf("create voucher: %w", err)
	}

	s.logger.Info("voucher purchased",
		"voucher_id", voucher.ID,
		"voucher_code", voucher.Code,
		"amount", voucher.Amount,
		"expires_at", voucher.ExpiresAt,
	)
	return voucher, nil
}

func (s *VoucherService) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	if code == "" {
		return nil, domain.NewValidationError("voucher code is required")
	}
	return s.vouchers.FindByCode(ctx, domain.NormalizeVoucherCode(code))
}

func (s *VoucherService) List(ctx context.Context, limit, offset int) ([]*domain.Voucher, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.vouchers.List(ctx, limit, offset)
}

// AdminCancel voids an active voucher. Redeemed, expired and cancelled
// vouchers are terminal and stay as they are.
func (s *VoucherService) AdminCancel(ctx context.Context, code string) error {
	voucher, err := s.vouchers.FindByCode(ctx, domain.NormalizeVoucherCode(code))
	if err != nil {
		return err
	}

	cancelled, err := s.vouchers.Cancel(ctx, voucher.ID)
	if err != nil {
		return err
	}
	if !cancelled {
		return domain.NewInvalidTransitionError("voucher", string(voucher.Status), string(domain.VoucherCancelled))
	}

	s.logger.Info("voucher cancelled by admin", "voucher_code", voucher.Code)
	return nil
}
