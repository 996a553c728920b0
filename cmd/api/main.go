package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DevFusionist/dilse/internal/app"
	"github.com/DevFusionist/dilse/internal/auth"
	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/config"
	"github.com/DevFusionist/dilse/internal/gateway"
	"github.com/DevFusionist/dilse/internal/notify"
	"github.com/DevFusionist/dilse/internal/storage/postgres"
	transporthttp "github.com/DevFusionist/dilse/internal/transport/http"
	"github.com/DevFusionist/dilse/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	clk := clock.NewSystem()

	var notifier notify.Dispatcher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaDispatcher := notify.NewKafkaDispatcher(logger, clk, cfg.KafkaBrokers, cfg.NotifyTopic)
		defer func() { _ = kafkaDispatcher.Close() }()
		notifier = kafkaDispatcher
		logger.Info("notifications publish to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.NotifyTopic),
		)
	} else {
		notifier = notify.NewLogDispatcher(logger)
		logger.Info("no kafka brokers configured, notifications are log-only")
	}

	tokens := auth.NewTokenManager(cfg.AuthTokenSecret, cfg.AuthTokenTTL)
	gatewayClient := gateway.NewClient(logger, cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)

	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	refundRepo := postgres.NewRefundRepository(pool)
	disputeRepo := postgres.NewDisputeRepository(pool)
	reportingRepo := postgres.NewReportingRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	orderSvc := app.NewOrderService(orderRepo, gatewayClient, clk, logger)
	verifySvc := app.NewVerificationService(orderRepo, paymentRepo, notifier, cfg.GatewayKeySecret, clk, logger)
	webhookSvc := app.NewWebhookService(orderRepo, paymentRepo, refundRepo, disputeRepo, reportingRepo, notifier, cfg.WebhookSecret, clk, logger)
	authSvc := app.NewAuthService(userRepo, tokens, clk)
	adminSvc := app.NewAdminService(orderRepo, paymentRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/auth/register", transporthttp.HandleRegister(authSvc))
	mux.Handle("/auth/login", transporthttp.HandleLogin(authSvc))
	mux.Handle("/auth/me", transporthttp.Authenticated(tokens, transporthttp.HandleMe(authSvc)))
	mux.Handle("/orders", transporthttp.Authenticated(tokens, transporthttp.HandleCreateOrder(orderSvc)))
	mux.Handle("/payments/verify", transporthttp.HandleVerifyPayment(verifySvc))
	mux.Handle("/webhooks/gateway", transporthttp.HandleWebhook(webhookSvc))
	mux.Handle("/admin/orders", transporthttp.Authenticated(tokens, transporthttp.HandleAdminOrders(adminSvc)))
	mux.Handle("/admin/payments/review", transporthttp.Authenticated(tokens, transporthttp.HandleAdminPaymentsReview(adminSvc)))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
