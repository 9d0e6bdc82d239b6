package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/controllers"
	webhookcontrollers "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/controllers/webhooks"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/middleware"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/notifications"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/orders"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/payments"
	paymentwebhook "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/webhooks/payments"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/metrics"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Registry *prometheus.Registry

	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service

	WebhookProcessor *paymentwebhook.Service
	WebhookVerifier  *paymentwebhook.Verifier
	WebhookMetrics   *metrics.WebhookMetrics
}

// NewRouter builds the chi handler tree.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	// The gateway calls this unauthenticated; the signature is the auth.
	r.Post("/payments/webhook", webhookcontrollers.PaymentWebhook(
		params.WebhookProcessor,
		params.WebhookVerifier,
		params.WebhookMetrics,
		logg,
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(params.Orders, logg))
			r.Get("/", controllers.ListOrders(params.Orders, logg))
			r.Get("/{id}", controllers.GetOrder(params.Orders, logg))
			r.Post("/{id}/confirm-delivery", controllers.ConfirmOrderDelivery(params.Orders, logg))
			r.Post("/{id}/cancel", controllers.CancelOrder(params.Orders, logg))
			r.With(middleware.RequireRoles(logg, string(enums.UserRoleAdmin))).
				Post("/{id}/transition", controllers.TransitionOrder(params.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/session", controllers.CreatePaymentSession(params.Payments, logg))
			r.With(middleware.RequireRoles(logg, string(enums.UserRoleAdmin))).
				Get("/transaction/{id}", controllers.GetPaymentTransaction(params.Payments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(params.Notifications, logg))
			r.Post("/{id}/archive", controllers.ArchiveNotification(params.Notifications, logg))
			r.Post("/{id}/resend", controllers.ResendNotification(params.Notifications, logg))
		})
	})

	return r
}
