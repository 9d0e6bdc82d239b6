package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/routes"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/notifications"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/orders"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/payments"
	paymentwebhook "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/webhooks/payments"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/gateway"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/metrics"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/migrate"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/redis"
)

const (
	webhookGuardScope = "payment-webhook"
	webhookGuardTTL   = 48 * time.Hour
	shutdownTimeout   = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(promRegistry)

	gatewayClient, err := gateway.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(ctx, "failed to build gateway client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Logger: logg,
		Config: cfg.Orders,
	})
	if err != nil {
		logg.Error(ctx, "failed to build orders service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Orders:     ordersSvc,
		OrdersRepo: ordersRepo,
		Gateway:    gatewayClient,
		ReturnURL:  cfg.Gateway.ReturnURL,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build payments service", err)
		os.Exit(1)
	}

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo: notificationsRepo,
		Senders: []notifications.ChannelSender{
			notifications.NewEmailSender(cfg.Sendgrid),
			notifications.NewSMSSender(cfg.SMS),
			notifications.NewPushSender(cfg.Push),
		},
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build notification dispatcher", err)
		os.Exit(1)
	}
	notificationsSvc, err := notifications.NewService(notificationsRepo, dispatcher)
	if err != nil {
		logg.Error(ctx, "failed to build notifications service", err)
		os.Exit(1)
	}

	guard, err := paymentwebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, webhookGuardScope)
	if err != nil {
		logg.Error(ctx, "failed to build webhook guard", err)
		os.Exit(1)
	}
	verifier, err := paymentwebhook.NewVerifier(gatewayClient.SigningSecret(), cfg.Gateway.SignatureTolerance)
	if err != nil {
		logg.Error(ctx, "failed to build signature verifier", err)
		os.Exit(1)
	}
	processor, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Orders:   ordersSvc,
		Guard:    guard,
		Notifier: dispatcher,
		Metrics:  webhookMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build webhook processor", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config:           cfg,
		Logger:           logg,
		DB:               dbClient,
		Redis:            redisClient,
		Registry:         promRegistry,
		Orders:           ordersSvc,
		Payments:         paymentsSvc,
		Notifications:    notificationsSvc,
		WebhookProcessor: processor,
		WebhookVerifier:  verifier,
		WebhookMetrics:   webhookMetrics,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logg.Info(logg.WithField(runCtx, "port", cfg.App.Port), "api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "server stopped unexpectedly", err)
			stop()
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api shut down gracefully")
}
