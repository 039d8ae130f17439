package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoptrust/reviews/internal/service"
	"github.com/shoptrust/reviews/pkg/health"
	"github.com/shoptrust/reviews/pkg/middleware"
)

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("reviews"))
	r.Use(middleware.Identity())
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reviewHandler := NewReviewHandler(reviewService, logger)
	adminHandler := NewAdminHandler(reviewService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", reviewHandler.List)
			r.Get("/{id}", reviewHandler.Get)

			// Mutations and evidence access need a caller identity.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuthenticated())

				r.Post("/", reviewHandler.Submit)
				r.Put("/{id}", reviewHandler.Update)
				r.Delete("/{id}", reviewHandler.Delete)
				r.Post("/{id}/evidence", reviewHandler.AttachEvidence)
				r.Get("/{id}/evidence", reviewHandler.GetEvidence)
			})
		})

		r.Get("/merchants/{id}/trust", reviewHandler.MerchantTrust)

		r.Route("/admin/reviews", func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated())
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Get("/", adminHandler.ListAll)
			r.Get("/pending", adminHandler.ListPending)
			r.Post("/{id}/decision", adminHandler.Decide)
			r.Delete("/{id}", adminHandler.Delete)
		})
	})

	return r
}
