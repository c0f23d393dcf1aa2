package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidyalane/schoolops-backend/api/controllers"
	"github.com/vidyalane/schoolops-backend/api/middleware"
	"github.com/vidyalane/schoolops-backend/internal/comms"
	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/internal/notifications"
	"github.com/vidyalane/schoolops-backend/internal/payments"
	"github.com/vidyalane/schoolops-backend/pkg/config"
	"github.com/vidyalane/schoolops-backend/pkg/db"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
	"github.com/vidyalane/schoolops-backend/pkg/redis"
)

// RouterParams carries everything the API router mounts. Gatherer may be nil
// when the process does not expose metrics.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Comms         comms.Service
	Payments      payments.Service
	Credentials   credentials.Service
	Notifications notifications.Service
	Gatherer      prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", controllers.Healthz(cfg, logg, params.DB, redisPinger(params.Redis)))

	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	// Provider delivery callbacks carry no tenant header; the message is
	// matched by provider_message_id instead. The endpoint is rate
	// limited because it is the only unauthenticated write surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(logg, receiptLimiter(params.Redis), "receipts",
			cfg.Webhooks.ReceiptRateLimit, cfg.Webhooks.ReceiptRateWindow))
		r.Post("/comms/receipts", controllers.ReceiptCreate(params.Comms, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Tenant(logg))

		r.Route("/comms", func(r chi.Router) {
			r.Route("/outbox", func(r chi.Router) {
				r.Post("/", controllers.CommsEnqueue(params.Comms, logg))
				r.Get("/", controllers.CommsList(params.Comms, logg))
				r.Get("/{messageId}", controllers.CommsDetail(params.Comms, logg))
				r.Post("/{messageId}/cancel", controllers.CommsCancel(params.Comms, logg))
			})
			r.Route("/templates", func(r chi.Router) {
				r.Post("/", controllers.TemplateCreate(params.Comms, logg))
				r.Get("/", controllers.TemplateList(params.Comms, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/webhook/event", controllers.PaymentsWebhookEvent(params.Payments, logg))
			r.Route("/pg", func(r chi.Router) {
				r.Post("/", controllers.PaymentsCreateTransaction(params.Payments, logg))
				r.Get("/{transactionId}", controllers.PaymentsTransactionDetail(params.Payments, logg))
			})
		})

		r.Route("/settings/integration-credentials", func(r chi.Router) {
			r.Post("/", controllers.CredentialsCreate(params.Credentials, logg))
			r.Get("/", controllers.CredentialsList(params.Credentials, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
		})
	})

	return r
}

// redisPinger keeps a typed-nil *redis.Client from reaching the health
// handler as a non-nil interface.
func redisPinger(client *redis.Client) interface {
	Ping(ctx context.Context) error
} {
	if client == nil {
		return nil
	}
	return client
}

// receiptLimiter mirrors redisPinger for the rate-limit middleware.
func receiptLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return client
}
