package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vidyalane/schoolops-backend/api/routes"
	"github.com/vidyalane/schoolops-backend/internal/comms"
	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/internal/notifications"
	"github.com/vidyalane/schoolops-backend/internal/payments"
	"github.com/vidyalane/schoolops-backend/pkg/config"
	"github.com/vidyalane/schoolops-backend/pkg/db"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
	"github.com/vidyalane/schoolops-backend/pkg/migrate"
	"github.com/vidyalane/schoolops-backend/pkg/redis"
	"github.com/vidyalane/schoolops-backend/pkg/secrets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	commsService, err := comms.NewService(comms.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create comms service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Guard:    redisClient,
		GuardTTL: cfg.Webhooks.IdempotencyTTL,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	codec, err := secrets.NewCodec(cfg.Secrets.CredentialsKey)
	if err != nil {
		logg.Error(context.Background(), "failed to build credentials codec", err)
		os.Exit(1)
	}
	codec.WarnIfUnsealed(context.Background(), logg, cfg.App.IsProd())
	credentialsService, err := credentials.NewService(credentials.NewRepository(dbClient.DB()), codec)
	if err != nil {
		logg.Error(context.Background(), "failed to create credentials service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Comms:         commsService,
			Payments:      paymentsService,
			Credentials:   credentialsService,
			Notifications: notificationsService,
			Gatherer:      prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
