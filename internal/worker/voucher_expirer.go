package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// VoucherExpirer flips active vouchers past their validity window to expired.
// The flip is a bulk conditional update, so it cannot race a redemption into
// expiring an already-redeemed voucher.
type VoucherExpirer struct {
	vouchers ports.VoucherRepository
	interval time.Duration
	logger   *slog.Logger
}

func NewVoucherExpirer(vouchers ports.VoucherRepository, interval time.Duration, logger *slog.Logger) *VoucherExpirer {
	return &VoucherExpirer{
		vouchers: vouchers,
		interval: interval,
		logger:   logger,
	}
}

func (w *VoucherExpirer) Start(ctx context.Context) {
	w.logger.Info("voucher expirer started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("voucher expirer stopping")
			return
		case <-ticker.C:
			n, err := w.vouchers.ExpireDue(ctx, time.Now().UTC())
			if err != nil {
				w.logger.Error("voucher expiry pass failed", "error", err)
				continue
			}
			if n > 0 {
				w.logger.Info("expired vouchers", "count", n)
			}
		}
	}
}
