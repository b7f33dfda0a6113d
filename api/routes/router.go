package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harlowe-labs/scenthq-backend/api/controllers"
	partnercontrollers "github.com/harlowe-labs/scenthq-backend/api/controllers/partners"
	paymentcontrollers "github.com/harlowe-labs/scenthq-backend/api/controllers/payments"
	subscriptioncontrollers "github.com/harlowe-labs/scenthq-backend/api/controllers/subscriptions"
	"github.com/harlowe-labs/scenthq-backend/api/middleware"
	"github.com/harlowe-labs/scenthq-backend/pkg/config"
	"github.com/harlowe-labs/scenthq-backend/pkg/db"
	"github.com/harlowe-labs/scenthq-backend/pkg/logger"
	"github.com/harlowe-labs/scenthq-backend/pkg/pubsub"
	"github.com/harlowe-labs/scenthq-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pubsubClient *pubsub.Client,
	paymentService paymentcontrollers.Service,
	partnerService partnercontrollers.Service,
	subscriptionService subscriptioncontrollers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(dbP, redisClient, pubsubClient)))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	billingPolicy := middleware.NewBillingRateLimitPolicy(
		"billing",
		cfg.RateLimit.BillingWindow,
		cfg.RateLimit.BillingIPLimit,
		cfg.RateLimit.BillingOrgLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/payments", func(r chi.Router) {
			r.Use(middleware.RateLimit(billingPolicy, redisClient, logg))
			r.Post("/", paymentcontrollers.Create(paymentService, logg))
			r.Get("/", paymentcontrollers.List(paymentService, logg))
			r.Route("/{paymentID}", func(r chi.Router) {
				r.Get("/", paymentcontrollers.Detail(paymentService, logg))
				r.Post("/process", paymentcontrollers.Process(paymentService, logg))
				r.Get("/refund-quote", paymentcontrollers.RefundQuote(paymentService, logg))
				r.Post("/refund", paymentcontrollers.Refund(paymentService, logg))
				r.Post("/cancel", paymentcontrollers.Cancel(paymentService, logg))
			})
		})

		r.Route("/partners", func(r chi.Router) {
			r.Post("/", partnercontrollers.Register(partnerService, logg))
			r.Route("/codes/{code}", func(r chi.Router) {
				r.Get("/", partnercontrollers.ValidateCode(partnerService, logg))
				r.Delete("/", partnercontrollers.DeactivateCode(partnerService, logg))
			})
			r.Route("/{partnerID}", func(r chi.Router) {
				r.Post("/codes", partnercontrollers.CreateCode(partnerService, logg))
				r.Get("/commissions", partnercontrollers.ListCommissions(partnerService, logg))
				r.Post("/commissions/{paymentID}/pay", partnercontrollers.PayCommission(partnerService, logg))
			})
		})

		r.Post("/referrals/attributions", partnercontrollers.Attribute(partnerService, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", subscriptioncontrollers.Create(subscriptionService, logg))
			r.Get("/me", subscriptioncontrollers.Fetch(subscriptionService, logg))
			r.Post("/upgrade", subscriptioncontrollers.Upgrade(subscriptionService, logg))
			r.Get("/features/{feature}", subscriptioncontrollers.FeatureAccess(subscriptionService, logg))
			r.Post("/runs", subscriptioncontrollers.RecordRun(subscriptionService, logg))
			r.Put("/progress", subscriptioncontrollers.UpdateProgress(subscriptionService, logg))
			r.Post("/cancel", subscriptioncontrollers.Cancel(subscriptionService, logg))
		})
	})

	return r
}
