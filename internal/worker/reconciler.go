package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

// Reconciler chases ledger entries whose callback never arrived. The gateway
// promises no delivery count, so entries stuck pending past the cutoff are
// resolved by querying the gateway directly and feeding the answer through
// the same callback-processing path, which keeps the idempotency guarantees.
type Reconciler struct {
	ledger    ports.LedgerRepository
	gateway   ports.GatewayPort
	callbacks *service.CallbackService
	interval  time.Duration
	cutoff    time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(
	ledger ports.LedgerRepository,
	gateway ports.GatewayPort,
	callbacks *service.CallbackService,
	interval, cutoff time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		ledger:    ledger,
		gateway:   gateway,
		callbacks: callbacks,
		interval:  interval,
		cutoff:    cutoff,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *Reconciler) Start(ctx context.Context) {
	w.logger.Info("reconciler started", "interval", w.interval, "cutoff", w.cutoff)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconciler stopping")
			return
		case <-ticker.C:
			if err := w.reconcile(ctx); err != nil {
				w.logger.Error("reconciliation pass failed", "error", err)
			}
		}
	}
}

func (w *Reconciler) reconcile(ctx context.Context) error {
	stale, err := w.ledger.FindStalePending(ctx, w.cutoff, w.batchSize)
	if err != nil {
		return fmt.Errorf("find stale pending entries: %w", err)
	}

	var resolved int
	for _, entry := range stale {
		if err := w.reconcileEntry(ctx, entry); err != nil {
			w.logger.Error("reconcile failed",
				"checkout_request_id", entry.CheckoutRequestID,
				"error", err)
		} else {
			resolved++
		}
	}

	if resolved > 0 {
		w.logger.Info("reconciled stale payments", "count", resolved, "stale", len(stale))
	}
	return nil
}

func (w *Reconciler) reconcileEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	result, err := w.gateway.STKQuery(ctx, entry.CheckoutRequestID)
	if err != nil {
		// The gateway rejects queries for very fresh pushes; leave the entry
		// for the next pass.
		return err
	}

	// An STK query carries no receipt or payer metadata, so a synthesized
	// success completes the entry with what the initiation recorded.
	cb := &domain.GatewayCallback{
		MerchantRequestID: entry.MerchantRequestID,
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        result.ResultCode,
		ResultDesc:        result.ResultDesc,
		Amount:            entry.Amount,
		Phone:             entry.Phone,
	}
	return w.callbacks.Process(ctx, cb)
}
