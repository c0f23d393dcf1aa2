package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidyalane/schoolops-backend/internal/comms"
	"github.com/vidyalane/schoolops-backend/internal/comms/providers"
	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/internal/notifications"
	"github.com/vidyalane/schoolops-backend/pkg/config"
	"github.com/vidyalane/schoolops-backend/pkg/db"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	"github.com/vidyalane/schoolops-backend/pkg/instance"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
	"github.com/vidyalane/schoolops-backend/pkg/metrics"
	"github.com/vidyalane/schoolops-backend/pkg/migrate"
	"github.com/vidyalane/schoolops-backend/pkg/secrets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-worker"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	codec, err := secrets.NewCodec(cfg.Secrets.CredentialsKey)
	if err != nil {
		logg.Error(context.Background(), "failed to build credentials codec", err)
		os.Exit(1)
	}
	codec.WarnIfUnsealed(context.Background(), logg, cfg.App.IsProd())
	resolver, err := credentials.NewResolver(credentials.NewRepository(dbClient.DB()), codec)
	if err != nil {
		logg.Error(context.Background(), "failed to build credentials resolver", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Providers.SendTimeout}
	registry := providers.NewRegistry()
	registry.Register(enums.ChannelEmail, providers.NewEmail(cfg.Providers.EmailEndpoint, httpClient, resolver))
	registry.Register(enums.ChannelSMS, providers.NewSMS(cfg.Providers.SMSEndpoint, httpClient, resolver))
	registry.Register(enums.ChannelChatPush, providers.NewChatPush(cfg.Providers.ChatEndpoint, httpClient, resolver))
	registry.Register(enums.ChannelInApp, providers.NewInApp(notifications.NewRepository(dbClient.DB())))

	promRegistry := prometheus.NewRegistry()
	outboxMetrics := metrics.NewOutboxMetrics(promRegistry)

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: comms.NewRepository(dbClient.DB()),
		Registry:   registry,
		Metrics:    outboxMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-worker",
		"instance":    instance.GetID(),
	})

	go serveMetrics(ctx, cfg, logg, promRegistry)

	logg.Info(ctx, "starting outbox worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Outbox.MetricsPort,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics listener stopped unexpectedly", err)
	}
}
