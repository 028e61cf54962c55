package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staleEntry(t *testing.T, ledger *service.MockLedgerRepository, checkoutRequestID string, referenceID uuid.UUID) *domain.LedgerEntry {
	t.Helper()
	entry := domain.NewLedgerEntry(checkoutRequestID, "m-"+checkoutRequestID, 3500, "254712345678", referenceID, domain.TypeBooking)
	entry.CreatedAt = time.Now().Add(-time.Hour)
	if err := ledger.Create(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	return entry
}

func TestReconciler_ResolvesStaleEntries(t *testing.T) {
	// Setup: one stale entry the gateway reports as completed, one it reports
	// as cancelled.
	ledger := service.NewMockLedgerRepository()
	bookings := service.NewMockBookingRepository()
	payments := service.NewMockPaymentTransactionRepository()
	callbacks := service.NewCallbackService(ledger, bookings, service.NewMockVoucherRepository(), payments, testLogger())

	paid, _ := domain.NewBooking("Jane Doe", "254712345678", "", time.Now(), "14:00", 60, "Westlands", 3500, "")
	cancelled, _ := domain.NewBooking("John Roe", "254700000000", "", time.Now(), "15:00", 60, "Westlands", 3500, "")
	bookings.Create(context.Background(), paid)
	bookings.Create(context.Background(), cancelled)

	paidEntry := staleEntry(t, ledger, "ws_CO_paid", paid.ID)
	cancelledEntry := staleEntry(t, ledger, "ws_CO_cancelled", cancelled.ID)
	payments.Create(context.Background(), domain.NewPaymentTransaction(paid.ID, domain.TypeBooking, 3500))

	gateway := &service.MockGateway{
		STKQueryFn: func(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResult, error) {
			if checkoutRequestID == "ws_CO_paid" {
				return &domain.STKQueryResult{CheckoutRequestID: checkoutRequestID, ResultCode: 0, ResultDesc: "The service request is processed successfully."}, nil
			}
			return &domain.STKQueryResult{CheckoutRequestID: checkoutRequestID, ResultCode: 1032, ResultDesc: "Request cancelled by user"}, nil
		},
	}

	w := NewReconciler(ledger, gateway, callbacks, time.Minute, 10*time.Minute, 50, testLogger())

	// Action
	if err := w.reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile pass failed: %v", err)
	}

	// Assert
	if got := ledger.Get(paidEntry.CheckoutRequestID); got.Status != domain.LedgerCompleted {
		t.Errorf("expected completed entry, got %s", got.Status)
	}
	if got := ledger.Get(cancelledEntry.CheckoutRequestID); got.Status != domain.LedgerFailed {
		t.Errorf("expected failed entry, got %s", got.Status)
	}
	confirmed, _ := bookings.FindByID(context.Background(), paid.ID)
	if confirmed.Status != domain.BookingConfirmed {
		t.Errorf("expected paid booking confirmed, got %s", confirmed.Status)
	}
	still, _ := bookings.FindByID(context.Background(), cancelled.ID)
	if still.Status != domain.BookingPending {
		t.Errorf("expected cancelled payment to leave booking pending, got %s", still.Status)
	}
}

func TestReconciler_GatewayErrorLeavesEntryForNextPass(t *testing.T) {
	// Setup: the gateway rejects the query, e.g. for a very fresh push.
	ledger := service.NewMockLedgerRepository()
	callbacks := service.NewCallbackService(ledger, service.NewMockBookingRepository(), service.NewMockVoucherRepository(), service.NewMockPaymentTransactionRepository(), testLogger())

	entry := staleEntry(t, ledger, "ws_CO_fresh", uuid.New())

	gateway := &service.MockGateway{
		STKQueryFn: func(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResult, error) {
			return nil, domain.NewGatewayRequestError("The transaction is being processed", nil)
		},
	}

	w := NewReconciler(ledger, gateway, callbacks, time.Minute, 10*time.Minute, 50, testLogger())

	// Action
	if err := w.reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile pass failed: %v", err)
	}

	// Assert: entry untouched, picked up again next tick.
	if got := ledger.Get(entry.CheckoutRequestID); got.Status != domain.LedgerPending {
		t.Errorf("expected entry still pending, got %s", got.Status)
	}
}

func TestVoucherExpirer_ExpiresOnlyDueActiveVouchers(t *testing.T) {
	// Setup
	vouchers := service.NewMockVoucherRepository()

	due, _ := domain.NewVoucher("Alice", "254712345678", "Bob", "", 5000, "Westlands", "")
	due.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	vouchers.Create(context.Background(), due)

	fresh, _ := domain.NewVoucher("Carol", "254700000000", "Dan", "", 5000, "Westlands", "")
	vouchers.Create(context.Background(), fresh)

	redeemed, _ := domain.NewVoucher("Eve", "254711111111", "Frank", "", 5000, "Westlands", "")
	redeemed.Status = domain.VoucherRedeemed
	redeemed.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	vouchers.Create(context.Background(), redeemed)

	// Action
	n, err := vouchers.ExpireDue(context.Background(), time.Now().UTC())

	// Assert
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired voucher, got %d", n)
	}
	if vouchers.Get(due.ID).Status != domain.VoucherExpired {
		t.Error("expected due voucher expired")
	}
	if vouchers.Get(fresh.ID).Status != domain.VoucherActive {
		t.Error("expected fresh voucher untouched")
	}
	if vouchers.Get(redeemed.ID).Status != domain.VoucherRedeemed {
		t.Error("expected redeemed voucher untouched")
	}
}
