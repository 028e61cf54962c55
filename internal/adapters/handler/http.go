// Package handler exposes the HTTP surface: payment initiation, the gateway
// callback, status reads, bookings, vouchers and the admin operations.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/prive-wellness/payments-service/internal/adapters/handler/middleware"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
	"github.com/prive-wellness/payments-service/internal/core/service"
	"github.com/prive-wellness/payments-service/internal/poller"
)

type InitiateService interface {
	Initiate(ctx context.Context, cmd service.InitiateCommand) (*domain.LedgerEntry, error)
}

type CallbackService interface {
	Process(ctx context.Context, cb *domain.GatewayCallback) error
}

type StatusService interface {
	Check(ctx context.Context, checkoutRequestID string) (*service.PaymentStatusView, error)
}

type BookingService interface {
	Create(ctx context.Context, cmd service.CreateBookingCommand) (*domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Booking, error)
	AdminUpdateStatus(ctx context.Context, id uuid.UUID, target domain.BookingStatus) (*domain.Booking, error)
}

type VoucherService interface {
	Purchase(ctx context.Context, cmd service.PurchaseVoucherCommand) (*domain.Voucher, error)
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Voucher, error)
	AdminCancel(ctx context.Context, code string) error
}

type RedemptionService interface {
	Validate(ctx context.Context, code string) (*domain.Voucher, error)
	Redeem(ctx context.Context, cmd service.RedeemCommand) (*domain.Booking, error)
}

type Handler struct {
	initiate   InitiateService
	callbacks  CallbackService
	status     StatusService
	bookings   BookingService
	vouchers   VoucherService
	redemption RedemptionService
	sessions   ports.SessionStore
	poller     *poller.Poller
	validate   *validator.Validate
	logger     *slog.Logger
}

func New(
	initiate InitiateService,
	callbacks CallbackService,
	status StatusService,
	bookings BookingService,
	vouchers VoucherService,
	redemption RedemptionService,
	sessions ports.SessionStore,
	statusPoller *poller.Poller,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		initiate:   initiate,
		callbacks:  callbacks,
		status:     status,
		bookings:   bookings,
		vouchers:   vouchers,
		redemption: redemption,
		sessions:   sessions,
		poller:     statusPoller,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bookings", h.HandleCreateBooking)
	mux.HandleFunc("GET /api/bookings/{id}", h.HandleGetBooking)

	mux.HandleFunc("POST /api/vouchers", h.HandlePurchaseVoucher)
	mux.HandleFunc("GET /api/vouchers/{code}", h.HandleGetVoucher)
	mux.HandleFunc("POST /api/vouchers/validate", h.HandleValidateVoucher)
	mux.HandleFunc("POST /api/vouchers/redeem", h.HandleRedeemVoucher)

	mux.HandleFunc("POST /api/payments/initiate", h.HandleInitiate)
	mux.HandleFunc("POST /api/payments/callback", h.HandleCallback)
	mux.HandleFunc("GET /api/payments/{checkoutRequestID}/status", h.HandleStatus)
	mux.HandleFunc("GET /api/payments/{checkoutRequestID}/wait", h.HandleWait)

	admin := middleware.AdminSession(h.sessions, h.logger)
	mux.Handle("GET /api/admin/bookings", admin(http.HandlerFunc(h.HandleListBookings)))
	mux.Handle("PATCH /api/admin/bookings/{id}/status", admin(http.HandlerFunc(h.HandleAdminBookingStatus)))
	mux.Handle("GET /api/admin/vouchers", admin(http.HandlerFunc(h.HandleListVouchers)))
	mux.Handle("POST /api/admin/vouchers/{code}/cancel", admin(http.HandlerFunc(h.HandleAdminCancelVoucher)))
}
