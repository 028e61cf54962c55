package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
)

func seedLedgerEntry(t *testing.T, ledger *MockLedgerRepository, referenceID uuid.UUID, txType domain.TransactionType) *domain.LedgerEntry {
	t.Helper()
	entry := domain.NewLedgerEntry("ws_CO_191220231020363925", "29115-34620561-1", 1000, "254712345678", referenceID, txType)
	if err := ledger.Create(context.Background(), entry); err != nil {
		t.Fatalf("seed ledger entry: %v", err)
	}
	return entry
}

func TestCallbackService_Process_SuccessConfirmsBooking(t *testing.T) {
	// Setup
	ledger := NewMockLedgerRepository()
	bookings := NewMockBookingRepository()
	vouchers := NewMockVoucherRepository()
	payments := NewMockPaymentTransactionRepository()
	svc := NewCallbackService(ledger, bookings, vouchers, payments, testLogger())

	booking, _ := domain.NewBooking("Jane Doe", "254712345678", "", time.Now(), "14:00", 60, "Westlands", 3500, "")
	if err := bookings.Create(context.Background(), booking); err != nil {
		t.Fatal(err)
	}
	entry := seedLedgerEntry(t, ledger, booking.ID, domain.TypeBooking)
	payments.Create(context.Background(), domain.NewPaymentTransaction(booking.ID, domain.TypeBooking, 1000))

	txDate := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
	cb := &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Amount:            1000,
		ReceiptNumber:     "QGH7XYZ1",
		Phone:             "254712345678",
		TransactionDate:   &txDate,
	}

	// Action
	err := svc.Process(context.Background(), cb)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored := ledger.Get(entry.CheckoutRequestID)
	if stored.Status != domain.LedgerCompleted {
		t.Errorf("expected completed entry, got %s", stored.Status)
	}
	if stored.ReceiptNumber == nil || *stored.ReceiptNumber != "QGH7XYZ1" {
		t.Error("expected receipt number recorded on entry")
	}
	got, _ := bookings.FindByID(context.Background(), booking.ID)
	if got.Status != domain.BookingConfirmed {
		t.Errorf("expected confirmed booking, got %s", got.Status)
	}
	if payments.CompletedCalls() != 1 {
		t.Errorf("expected 1 payment completion, got %d", payments.CompletedCalls())
	}
}

func TestCallbackService_Process_FailureLeavesBookingPending(t *testing.T) {
	// Setup
	ledger := NewMockLedgerRepository()
	bookings := NewMockBookingRepository()
	svc := NewCallbackService(ledger, bookings, NewMockVoucherRepository(), NewMockPaymentTransactionRepository(), testLogger())

	booking, _ := domain.NewBooking("Jane Doe", "254712345678", "", time.Now(), "14:00", 60, "Westlands", 3500, "")
	bookings.Create(context.Background(), booking)
	entry := seedLedgerEntry(t, ledger, booking.ID, domain.TypeBooking)

	cb := &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}

	// Action
	err := svc.Process(context.Background(), cb)

	// Assert: the failure lands on the ledger, the booking stays pending so
	// the customer can retry payment.
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored := ledger.Get(entry.CheckoutRequestID)
	if stored.Status != domain.LedgerFailed {
		t.Errorf("expected failed entry, got %s", stored.Status)
	}
	got, _ := bookings.FindByID(context.Background(), booking.ID)
	if got.Status != domain.BookingPending {
		t.Errorf("expected booking still pending, got %s", got.Status)
	}
}

func TestCallbackService_Process_SuccessCompletesVoucherPayment(t *testing.T) {
	// Setup
	ledger := NewMockLedgerRepository()
	vouchers := NewMockVoucherRepository()
	payments := NewMockPaymentTransactionRepository()
	svc := NewCallbackService(ledger, NewMockBookingRepository(), vouchers, payments, testLogger())

	voucher, _ := domain.NewVoucher("Alice", "254712345678", "Bob", "", 5000, "Westlands", "")
	vouchers.Create(context.Background(), voucher)
	entry := seedLedgerEntry(t, ledger, voucher.ID, domain.TypeGiftVoucher)
	payments.Create(context.Background(), domain.NewPaymentTransaction(voucher.ID, domain.TypeGiftVoucher, 5000))

	cb := &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Amount:            5000,
		ReceiptNumber:     "QGH7XYZ2",
	}

	// Action
	err := svc.Process(context.Background(), cb)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vouchers.Get(voucher.ID).PaymentStatus != domain.VoucherPaymentCompleted {
		t.Error("expected voucher payment marked completed")
	}
}

func TestCallbackService_Process_UnknownCheckoutIDIsNoOp(t *testing.T) {
	// Setup
	svc := NewCallbackService(NewMockLedgerRepository(), NewMockBookingRepository(), NewMockVoucherRepository(), NewMockPaymentTransactionRepository(), testLogger())

	// Action
	err := svc.Process(context.Background(), &domain.GatewayCallback{
		CheckoutRequestID: "ws_CO_never_seen",
		ResultCode:        0,
	})

	// Assert: logged and swallowed; the HTTP layer still acks the gateway.
	if err != nil {
		t.Fatalf("expected nil error for unknown id, got %v", err)
	}
}

func TestCallbackService_Process_DuplicateDeliveryIsExactlyOnce(t *testing.T) {
	// Setup
	ledger := NewMockLedgerRepository()
	bookings := NewMockBookingRepository()
	payments := NewMockPaymentTransactionRepository()
	svc := NewCallbackService(ledger, bookings, NewMockVoucherRepository(), payments, testLogger())

	booking, _ := domain.NewBooking("Jane Doe", "254712345678", "", time.Now(), "14:00", 60, "Westlands", 3500, "")
	bookings.Create(context.Background(), booking)
	entry := seedLedgerEntry(t, ledger, booking.ID, domain.TypeBooking)
	payments.Create(context.Background(), domain.NewPaymentTransaction(booking.ID, domain.TypeBooking, 1000))

	cb := &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Amount:            1000,
		ReceiptNumber:     "QGH7XYZ1",
	}

	// Action: the gateway redelivers the same result three times.
	for i := 0; i < 3; i++ {
		if err := svc.Process(context.Background(), cb); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}

	// Assert: terminal state written once, entity writes happened once.
	if ledger.Get(entry.CheckoutRequestID).Status != domain.LedgerCompleted {
		t.Error("expected completed entry")
	}
	if payments.CompletedCalls() != 1 {
		t.Errorf("expected exactly 1 payment completion, got %d", payments.CompletedCalls())
	}
}

func TestCallbackService_Process_SuccessAfterFailureDoesNotFlip(t *testing.T) {
	// Setup: a failure already landed; a contradictory late success must not
	// rewrite history.
	ledger := NewMockLedgerRepository()
	bookings := NewMockBookingRepository()
	svc := NewCallbackService(ledger, bookings, NewMockVoucherRepository(), NewMockPaymentTransactionRepository(), testLogger())

	booking, _ := domain.NewBooking("Jane Doe", "254712345678", "", time.Now(), "14:00", 60, "Westlands", 3500, "")
	bookings.Create(context.Background(), booking)
	entry := seedLedgerEntry(t, ledger, booking.ID, domain.TypeBooking)

	if err := svc.Process(context.Background(), &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        1037,
		ResultDesc:        "DS timeout",
	}); err != nil {
		t.Fatal(err)
	}

	// Action
	err := svc.Process(context.Background(), &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        0,
		ReceiptNumber:     "QGH7XYZ9",
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ledger.Get(entry.CheckoutRequestID).Status != domain.LedgerFailed {
		t.Error("expected entry to stay failed")
	}
	got, _ := bookings.FindByID(context.Background(), booking.ID)
	if got.Status != domain.BookingPending {
		t.Errorf("expected booking untouched, got %s", got.Status)
	}
}

func TestCallbackService_Process_SuccessWithoutMetadataFallsBackToEntry(t *testing.T) {
	// Setup: reconciler-synthesized callbacks carry no receipt or date.
	ledger := NewMockLedgerRepository()
	bookings := NewMockBookingRepository()
	payments := NewMockPaymentTransactionRepository()
	svc := NewCallbackService(ledger, bookings, NewMockVoucherRepository(), payments, testLogger())

	booking, _ := domain.NewBooking("Jane Doe", "254712345678", "", time.Now(), "14:00", 60, "Westlands", 3500, "")
	bookings.Create(context.Background(), booking)
	entry := seedLedgerEntry(t, ledger, booking.ID, domain.TypeBooking)
	payments.Create(context.Background(), domain.NewPaymentTransaction(booking.ID, domain.TypeBooking, 1000))

	// Action
	err := svc.Process(context.Background(), &domain.GatewayCallback{
		CheckoutRequestID: entry.CheckoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored := ledger.Get(entry.CheckoutRequestID)
	if stored.Status != domain.LedgerCompleted {
		t.Fatalf("expected completed entry, got %s", stored.Status)
	}
	if stored.Amount != 1000 || stored.Phone != "254712345678" {
		t.Error("expected amount and phone retained from initiation")
	}
	if stored.TransactionDate == nil {
		t.Error("expected a transaction date defaulted")
	}
}
