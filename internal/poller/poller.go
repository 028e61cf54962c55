// Package poller implements the client-side completion signal: a bounded
// polling loop over the payment status read, since the gateway has no push
// channel to the browser.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

// Outcome is what a finished poll reports. TimedOut is deliberately distinct
// from Failed: the payment may still land via a later callback, so the user
// is told to check again rather than that the payment failed.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

type Result struct {
	Outcome    Outcome
	ResultCode *int
	ResultDesc *string
	Attempts   int
}

// StatusFunc is one read of the ledger entry under poll.
type StatusFunc func(ctx context.Context) (*service.PaymentStatusView, error)

type Poller struct {
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

func New(interval time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	return &Poller{
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Poll reads the status on a fixed interval until a terminal state appears or
// the attempt budget runs out. Transient read errors consume an attempt but
// do not end the poll; the ledger may simply not be visible yet. Cancelling
// ctx stops the loop immediately.
func (p *Poller) Poll(ctx context.Context, fn StatusFunc) (*Result, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		view, err := fn(ctx)
		if err != nil {
			p.logger.Debug("status poll read failed", "attempt", attempt, "error", err)
		} else {
			switch view.Status {
			case domain.LedgerCompleted:
				return &Result{Outcome: OutcomeCompleted, ResultCode: view.ResultCode, ResultDesc: view.ResultDesc, Attempts: attempt}, nil
			case domain.LedgerFailed:
				return &Result{Outcome: OutcomeFailed, ResultCode: view.ResultCode, ResultDesc: view.ResultDesc, Attempts: attempt}, nil
			}
		}

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return &Result{Outcome: OutcomeTimedOut, Attempts: p.maxAttempts}, nil
}
