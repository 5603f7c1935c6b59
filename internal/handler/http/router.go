package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LogiScore/backend-sub000/internal/service"
	"github.com/LogiScore/backend-sub000/pkg/health"
	"github.com/LogiScore/backend-sub000/pkg/middleware"
)

// ContentTypeJSON rejects bodied requests that are not application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && ct != "application/json" && ct != "application/json; charset=utf-8" {
				http.Error(w, `{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`, http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	lifecycleService *service.LifecycleService,
	monitor *service.ThresholdMonitor,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("review-service"))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Review API endpoints
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", reviewHandler.CreateReview)
		r.Get("/{id}", reviewHandler.GetReview)
	})

	// Forwarder read endpoints
	thresholdHandler := NewThresholdHandler(lifecycleService, monitor, logger)

	r.Route("/api/v1/forwarders/{forwarderId}", func(r chi.Router) {
		r.Get("/reviews", reviewHandler.ListProviderReviews)
		r.Get("/score-summary", reviewHandler.GetScoreSummary)
		r.Get("/score", thresholdHandler.GetProviderScore)
	})

	// Review subscription endpoints
	subscriptionHandler := NewSubscriptionHandler(lifecycleService, logger)

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", subscriptionHandler.CreateSubscription)
		r.Get("/", subscriptionHandler.ListSubscriptions)
		r.Patch("/{id}/active", subscriptionHandler.ToggleSubscription)
		r.Patch("/{id}/frequency", subscriptionHandler.UpdateFrequency)
		r.Delete("/{id}", subscriptionHandler.DeleteSubscription)
	})

	// Score threshold subscription endpoints
	r.Route("/api/v1/threshold-subscriptions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", thresholdHandler.CreateThresholdSubscription)
		r.Get("/", thresholdHandler.ListThresholdSubscriptions)
		r.Patch("/{id}/active", thresholdHandler.ToggleThresholdSubscription)
		r.Delete("/{id}", thresholdHandler.DeleteThresholdSubscription)
	})

	// Billing webhook
	webhookHandler := NewWebhookHandler(lifecycleService, logger)

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/billing", webhookHandler.HandleBilling)
	})

	return r
}
