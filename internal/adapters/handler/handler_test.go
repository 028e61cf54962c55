package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/service"
)

// Mock services
type mockInitiateService struct {
	initiateFn func(ctx context.Context, cmd service.InitiateCommand) (*domain.LedgerEntry, error)
}

func (m *mockInitiateService) Initiate(ctx context.Context, cmd service.InitiateCommand) (*domain.LedgerEntry, error) {
	return m.initiateFn(ctx, cmd)
}

type mockCallbackService struct {
	calls     int
	processFn func(ctx context.Context, cb *domain.GatewayCallback) error
}

func (m *mockCallbackService) Process(ctx context.Context, cb *domain.GatewayCallback) error {
	m.calls++
	if m.processFn != nil {
		return m.processFn(ctx, cb)
	}
	return nil
}

type mockStatusService struct {
	checkFn func(ctx context.Context, checkoutRequestID string) (*service.PaymentStatusView, error)
}

func (m *mockStatusService) Check(ctx context.Context, checkoutRequestID string) (*service.PaymentStatusView, error) {
	return m.checkFn(ctx, checkoutRequestID)
}

type mockRedemptionService struct {
	validateFn func(ctx context.Context, code string) (*domain.Voucher, error)
	redeemFn   func(ctx context.Context, cmd service.RedeemCommand) (*domain.Booking, error)
}

func (m *mockRedemptionService) Validate(ctx context.Context, code string) (*domain.Voucher, error) {
	return m.validateFn(ctx, code)
}

func (m *mockRedemptionService) Redeem(ctx context.Context, cmd service.RedeemCommand) (*domain.Booking, error) {
	return m.redeemFn(ctx, cmd)
}

type mockSessionStore struct {
	sessions map[string]*domain.Session
}

func (m *mockSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	sess, ok := m.sessions[token]
	if !ok {
		return nil, domain.NewUnauthorizedError("unknown session")
	}
	return sess, nil
}

func (m *mockSessionStore) Create(ctx context.Context, sess *domain.Session) error {
	m.sessions[sess.Token] = sess
	return nil
}

func (m *mockSessionStore) Revoke(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleInitiate_Success(t *testing.T) {
	referenceID := uuid.New()
	mockInitiate := &mockInitiateService{
		initiateFn: func(ctx context.Context, cmd service.InitiateCommand) (*domain.LedgerEntry, error) {
			return domain.NewLedgerEntry("ws_CO_1", "m-1", cmd.Amount, "254712345678", cmd.ReferenceID, cmd.TransactionType), nil
		},
	}
	h := New(mockInitiate, nil, nil, nil, nil, nil, nil, nil, discardLogger())

	reqBody, _ := json.Marshal(InitiateRequest{
		Phone:           "0712345678",
		Amount:          1000,
		ReferenceID:     referenceID.String(),
		TransactionType: "booking",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewBuffer(reqBody))
	rr := httptest.NewRecorder()

	h.HandleInitiate(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp APIResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.Success {
		t.Error("expected success envelope")
	}
}

func TestHandleInitiate_RejectsUnknownTransactionType(t *testing.T) {
	h := New(&mockInitiateService{}, nil, nil, nil, nil, nil, nil, nil, discardLogger())

	reqBody, _ := json.Marshal(InitiateRequest{
		Phone:           "0712345678",
		Amount:          1000,
		ReferenceID:     uuid.NewString(),
		TransactionType: "subscription",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewBuffer(reqBody))
	rr := httptest.NewRecorder()

	h.HandleInitiate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleCallback_AlwaysAcks(t *testing.T) {
	success := `{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"Amount","Value":1000},{"Name":"MpesaReceiptNumber","Value":"QGH7XYZ1"}]}}}}`

	cases := []struct {
		name      string
		body      string
		processFn func(ctx context.Context, cb *domain.GatewayCallback) error
	}{
		{"valid success callback", success, nil},
		{"malformed body", `{"Body":`, nil},
		{"processing failure", success, func(ctx context.Context, cb *domain.GatewayCallback) error {
			return domain.NewInternalError(context.DeadlineExceeded)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			callbacks := &mockCallbackService{processFn: tc.processFn}
			h := New(nil, callbacks, nil, nil, nil, nil, nil, nil, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()

			h.HandleCallback(rr, req)

			// The gateway must always get a 200; anything else provokes retries.
			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}

			var ack map[string]any
			json.Unmarshal(rr.Body.Bytes(), &ack)
			if ack["ResultCode"] != float64(0) {
				t.Errorf("expected ResultCode 0 in ack, got %v", ack["ResultCode"])
			}
		})
	}
}

func TestHandleCallback_ParsesMetadataBeforeProcessing(t *testing.T) {
	var got *domain.GatewayCallback
	callbacks := &mockCallbackService{processFn: func(ctx context.Context, cb *domain.GatewayCallback) error {
		got = cb
		return nil
	}}
	h := New(nil, callbacks, nil, nil, nil, nil, nil, nil, discardLogger())

	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_9","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"Amount","Value":3500},{"Name":"MpesaReceiptNumber","Value":"QAB1CDE2"}]}}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	h.HandleCallback(rr, req)

	if got == nil {
		t.Fatal("expected callback handed to service")
	}
	if got.CheckoutRequestID != "ws_CO_9" || got.Amount != 3500 || got.ReceiptNumber != "QAB1CDE2" {
		t.Errorf("unexpected parsed callback: %+v", got)
	}
}

func TestHandleStatus_NotFound(t *testing.T) {
	status := &mockStatusService{
		checkFn: func(ctx context.Context, checkoutRequestID string) (*service.PaymentStatusView, error) {
			return nil, domain.NewNotFoundError("no payment attempt for checkout request id " + checkoutRequestID)
		},
	}
	h := New(nil, nil, status, nil, nil, nil, nil, nil, discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments/{checkoutRequestID}/status", h.HandleStatus)

	req := httptest.NewRequest(http.MethodGet, "/api/payments/ws_CO_missing/status", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleRedeemVoucher_SlotTaken(t *testing.T) {
	redemption := &mockRedemptionService{
		redeemFn: func(ctx context.Context, cmd service.RedeemCommand) (*domain.Booking, error) {
			return nil, domain.NewSlotTakenError()
		},
	}
	h := New(nil, nil, nil, nil, nil, redemption, nil, nil, discardLogger())

	reqBody, _ := json.Marshal(RedeemVoucherRequest{
		Code:          "PRI-ABC23456",
		CustomerPhone: "0712345678",
		Date:          "2026-09-15",
		StartTime:     "14:00",
		Duration:      60,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/vouchers/redeem", bytes.NewBuffer(reqBody))
	rr := httptest.NewRecorder()

	h.HandleRedeemVoucher(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp APIResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error == nil || resp.Error.Code != domain.ErrCodeSlotTaken {
		t.Errorf("expected SLOT_TAKEN error code, got %+v", resp.Error)
	}
}

func TestAdminRoutes_RequireSession(t *testing.T) {
	store := &mockSessionStore{sessions: map[string]*domain.Session{
		"valid-token": {
			Token:     "valid-token",
			UserID:    "admin-1",
			Role:      "admin",
			Active:    true,
			ExpiresAt: time.Now().Add(time.Hour),
		},
		"expired-token": {
			Token:     "expired-token",
			UserID:    "admin-2",
			Role:      "admin",
			Active:    true,
			ExpiresAt: time.Now().Add(-time.Hour),
		},
	}}

	bookings := &mockBookingService{
		listFn: func(ctx context.Context, limit, offset int) ([]*domain.Booking, error) {
			return nil, nil
		},
	}
	h := New(nil, nil, nil, bookings, nil, nil, store, nil, discardLogger())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	cases := []struct {
		name   string
		token  string
		expect int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"unknown token", "bogus", http.StatusUnauthorized},
		{"expired token", "expired-token", http.StatusUnauthorized},
		{"valid token", "valid-token", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/bookings", nil)
			if tc.token != "" {
				req.Header.Set("X-Session-Token", tc.token)
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tc.expect {
				t.Errorf("expected status %d, got %d: %s", tc.expect, rr.Code, rr.Body.String())
			}
		})
	}
}

type mockBookingService struct {
	createFn func(ctx context.Context, cmd service.CreateBookingCommand) (*domain.Booking, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	listFn   func(ctx context.Context, limit, offset int) ([]*domain.Booking, error)
	adminFn  func(ctx context.Context, id uuid.UUID, target domain.BookingStatus) (*domain.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, cmd service.CreateBookingCommand) (*domain.Booking, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockBookingService) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return m.getFn(ctx, id)
}

func (m *mockBookingService) List(ctx context.Context, limit, offset int) ([]*domain.Booking, error) {
	return m.listFn(ctx, limit, offset)
}

func (m *mockBookingService) AdminUpdateStatus(ctx context.Context, id uuid.UUID, target domain.BookingStatus) (*domain.Booking, error) {
	return m.adminFn(ctx, id, target)
}
