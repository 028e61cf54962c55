package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

// In-memory fakes for the persistence and gateway ports. Each method takes an
// optional Fn override; without one it runs against the maps, which are safe
// for concurrent use so the redemption race tests can hammer them.

// MockLedgerRepository
type MockLedgerRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.LedgerEntry

	CreateFn        func(ctx context.Context, entry *domain.LedgerEntry) error
	FindFn          func(ctx context.Context, checkoutRequestID string) (*domain.LedgerEntry, error)
	MarkCompletedFn func(ctx context.Context, checkoutRequestID string) (bool, error)
	MarkFailedFn    func(ctx context.Context, checkoutRequestID string) (bool, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{entries: make(map[string]*domain.LedgerEntry)}
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, entry)
	}
	m.entries[entry.CheckoutRequestID] = entry
	return nil
}

func (m *MockLedgerRepository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindFn != nil {
		return m.FindFn(ctx, checkoutRequestID)
	}
	entry, ok := m.entries[checkoutRequestID]
	if !ok {
		return nil, domain.NewNotFoundError("no payment attempt for checkout request id " + checkoutRequestID)
	}
	copied := *entry
	return &copied, nil
}

func (m *MockLedgerRepository) MarkCompleted(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc, receiptNumber, phone string, amount int64, transactionDate time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, checkoutRequestID)
	}
	entry, ok := m.entries[checkoutRequestID]
	if !ok || entry.Status != domain.LedgerPending {
		return false, nil
	}
	entry.Status = domain.LedgerCompleted
	entry.ResultCode = &resultCode
	entry.ResultDesc = &resultDesc
	entry.ReceiptNumber = &receiptNumber
	entry.Phone = phone
	entry.Amount = amount
	entry.TransactionDate = &transactionDate
	entry.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MockLedgerRepository) MarkFailed(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkFailedFn != nil {
		return m.MarkFailedFn(ctx, checkoutRequestID)
	}
	entry, ok := m.entries[checkoutRequestID]
	if !ok || entry.Status != domain.LedgerPending {
		return false, nil
	}
	entry.Status = domain.LedgerFailed
	entry.ResultCode = &resultCode
	entry.ResultDesc = &resultDesc
	entry.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MockLedgerRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-olderThan)
	var stale []*domain.LedgerEntry
	for _, entry := range m.entries {
		if entry.Status == domain.LedgerPending && entry.CreatedAt.Before(cutoff) {
			copied := *entry
			stale = append(stale, &copied)
			if len(stale) == limit {
				break
			}
		}
	}
	return stale, nil
}

// Get returns the stored entry for assertions.
func (m *MockLedgerRepository) Get(checkoutRequestID string) *domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[checkoutRequestID]
}

// MockBookingRepository
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*domain.Booking

	CreateFn       func(ctx context.Context, booking *domain.Booking) error
	UpdateStatusFn func(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error
	SlotTakenFn    func(ctx context.Context, date time.Time, startTime, branch string) (bool, error)
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, booking)
	}
	m.bookings[booking.ID] = booking
	return nil
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking not found")
	}
	copied := *booking
	return &copied, nil
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}
	booking, ok := m.bookings[id]
	if !ok {
		return domain.NewNotFoundError("booking not found")
	}
	booking.Status = status
	return nil
}

func (m *MockBookingRepository) SlotTaken(ctx context.Context, date time.Time, startTime, branch string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.SlotTakenFn != nil {
		return m.SlotTakenFn(ctx, date, startTime, branch)
	}
	for _, b := range m.bookings {
		if b.Date.Equal(date) && b.StartTime == startTime && b.Branch == branch &&
			(b.Status == domain.BookingPending || b.Status == domain.BookingConfirmed) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBookingRepository) List(ctx context.Context, limit, offset int) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range m.bookings {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockBookingRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

// MockVoucherRepository
type MockVoucherRepository struct {
	mu       sync.RWMutex
	vouchers map[uuid.UUID]*domain.Voucher

	RedeemFn func(ctx context.Context, id uuid.UUID) (bool, error)
}

func NewMockVoucherRepository() *MockVoucherRepository {
	return &MockVoucherRepository{vouchers: make(map[uuid.UUID]*domain.Voucher)}
}

func (m *MockVoucherRepository) Create(ctx context.Context, voucher *domain.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vouchers[voucher.ID] = voucher
	return nil
}

func (m *MockVoucherRepository) FindByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.vouchers {
		if v.Code == code {
			copied := *v
			return &copied, nil
		}
	}
	return nil, domain.NewVoucherNotFoundError()
}

func (m *MockVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vouchers[id]
	if !ok {
		return nil, domain.NewVoucherNotFoundError()
	}
	copied := *v
	return &copied, nil
}

func (m *MockVoucherRepository) MarkPaymentCompleted(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return domain.NewVoucherNotFoundError()
	}
	v.PaymentStatus = domain.VoucherPaymentCompleted
	return nil
}

func (m *MockVoucherRepository) Redeem(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RedeemFn != nil {
		return m.RedeemFn(ctx, id)
	}
	v, ok := m.vouchers[id]
	if !ok || v.Status != domain.VoucherActive {
		return false, nil
	}
	v.Status = domain.VoucherRedeemed
	return true, nil
}

func (m *MockVoucherRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok || v.Status != domain.VoucherActive {
		return false, nil
	}
	v.Status = domain.VoucherCancelled
	return true, nil
}

func (m *MockVoucherRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.vouchers {
		if v.Status == domain.VoucherActive && v.ExpiresAt.Before(now) {
			v.Status = domain.VoucherExpired
			n++
		}
	}
	return n, nil
}

func (m *MockVoucherRepository) List(ctx context.Context, limit, offset int) ([]*domain.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Voucher
	for _, v := range m.vouchers {
		copied := *v
		out = append(out, &copied)
	}
	return out, nil
}

// Get returns the stored voucher for assertions.
func (m *MockVoucherRepository) Get(id uuid.UUID) *domain.Voucher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vouchers[id]
}

// MockPaymentTransactionRepository
type MockPaymentTransactionRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.PaymentTransaction

	completedCalls int
}

func NewMockPaymentTransactionRepository() *MockPaymentTransactionRepository {
	return &MockPaymentTransactionRepository{records: make(map[string]*domain.PaymentTransaction)}
}

func paymentKey(referenceID uuid.UUID, txType domain.TransactionType) string {
	return referenceID.String() + "/" + string(txType)
}

func (m *MockPaymentTransactionRepository) Create(ctx context.Context, p *domain.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := paymentKey(p.ReferenceID, p.TransactionType)
	if _, exists := m.records[key]; exists {
		return nil
	}
	m.records[key] = p
	return nil
}

func (m *MockPaymentTransactionRepository) MarkCompleted(ctx context.Context, referenceID uuid.UUID, txType domain.TransactionType, transactionID string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[paymentKey(referenceID, txType)]
	if !ok {
		return domain.NewNotFoundError("no payment transaction for reference " + referenceID.String())
	}
	p.Status = domain.PaymentTxCompleted
	p.TransactionID = &transactionID
	p.CompletedAt = &completedAt
	m.completedCalls++
	return nil
}

func (m *MockPaymentTransactionRepository) FindByReference(ctx context.Context, referenceID uuid.UUID, txType domain.TransactionType) (*domain.PaymentTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.records[paymentKey(referenceID, txType)]
	if !ok {
		return nil, domain.NewNotFoundError("payment transaction not found")
	}
	copied := *p
	return &copied, nil
}

func (m *MockPaymentTransactionRepository) CompletedCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completedCalls
}

// MockTxCoordinator runs the function directly against the supplied mocks.
// Rollback-on-error is emulated by snapshotting the voucher map; transactions
// are serialized so a rollback never clobbers a concurrent winner's commit.
type MockTxCoordinator struct {
	txMu     sync.Mutex
	Vouchers *MockVoucherRepository
	Bookings *MockBookingRepository
}

func (m *MockTxCoordinator) WithTransaction(ctx context.Context, fn func(vouchers ports.VoucherRepository, bookings ports.BookingRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.Vouchers.mu.Lock()
	snapshot := make(map[uuid.UUID]domain.Voucher, len(m.Vouchers.vouchers))
	for id, v := range m.Vouchers.vouchers {
		snapshot[id] = *v
	}
	m.Vouchers.mu.Unlock()

	if err := fn(m.Vouchers, m.Bookings); err != nil {
		m.Vouchers.mu.Lock()
		m.Vouchers.vouchers = make(map[uuid.UUID]*domain.Voucher, len(snapshot))
		for id, v := range snapshot {
			restored := v
			m.Vouchers.vouchers[id] = &restored
		}
		m.Vouchers.mu.Unlock()
		return err
	}
	return nil
}

// MockGateway
type MockGateway struct {
	mu        sync.Mutex
	pushCalls int

	STKPushFn  func(ctx context.Context, req domain.STKPushRequest) (*domain.STKPushResult, error)
	STKQueryFn func(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResult, error)
}

func (m *MockGateway) STKPush(ctx context.Context, req domain.STKPushRequest) (*domain.STKPushResult, error) {
	m.mu.Lock()
	m.pushCalls++
	m.mu.Unlock()
	if m.STKPushFn != nil {
		return m.STKPushFn(ctx, req)
	}
	return &domain.STKPushResult{
		MerchantRequestID: "merchant-" + uuid.NewString(),
		CheckoutRequestID: "ws_CO_" + uuid.NewString(),
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (m *MockGateway) STKQuery(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResult, error) {
	if m.STKQueryFn != nil {
		return m.STKQueryFn(ctx, checkoutRequestID)
	}
	return &domain.STKQueryResult{CheckoutRequestID: checkoutRequestID, ResultCode: 0, ResultDesc: "The service request is processed successfully."}, nil
}

func (m *MockGateway) PushCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushCalls
}
