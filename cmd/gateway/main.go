package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prive-wellness/payments-service/internal/adapters/daraja"
	"github.com/prive-wellness/payments-service/internal/adapters/handler"
	"github.com/prive-wellness/payments-service/internal/adapters/handler/middleware"
	"github.com/prive-wellness/payments-service/internal/adapters/postgres"
	"github.com/prive-wellness/payments-service/internal/adapters/sessions"
	"github.com/prive-wellness/payments-service/internal/config"
	"github.com/prive-wellness/payments-service/internal/core/service"
	"github.com/prive-wellness/payments-service/internal/poller"
	"github.com/prive-wellness/payments-service/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payments service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledgerRepo := postgres.NewLedgerRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	voucherRepo := postgres.NewVoucherRepository(db)
	paymentRepo := postgres.NewPaymentTransactionRepository(db)
	txCoordinator := postgres.NewTransactionCoordinator(db)

	gateway := daraja.NewClient(cfg.Daraja)

	sessionStore := sessions.NewStore(cfg.Redis)
	defer sessionStore.Close()

	initiateService := service.NewInitiateService(ledgerRepo, paymentRepo, gateway, logger)
	callbackService := service.NewCallbackService(ledgerRepo, bookingRepo, voucherRepo, paymentRepo, logger)
	statusService := service.NewStatusService(ledgerRepo)
	bookingService := service.NewBookingService(bookingRepo, logger)
	voucherService := service.NewVoucherService(voucherRepo, logger)
	redemptionService := service.NewRedemptionService(voucherRepo, bookingRepo, txCoordinator, logger)

	statusPoller := poller.New(cfg.Poller.Interval, cfg.Poller.MaxAttempts, logger)

	h := handler.New(
		initiateService,
		callbackService,
		statusService,
		bookingService,
		voucherService,
		redemptionService,
		sessionStore,
		statusPoller,
		logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	router := http.Handler(mux)

	httpHandler := middleware.Recovery(logger)(router)
	httpHandler = middleware.Logging(logger)(httpHandler)
	httpHandler = middleware.Timeout(cfg.Server.ReadTimeout)(httpHandler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		ledgerRepo,
		gateway,
		callbackService,
		cfg.Worker.Interval,
		cfg.Worker.PendingCutoff,
		cfg.Worker.BatchSize,
		logger,
	)

	expirer := worker.NewVoucherExpirer(
		voucherRepo,
		cfg.Worker.Interval,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)
	go expirer.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
