package server

import (
	"net/http"
	"time"

	"barpos-backend/internal/config"
	"barpos-backend/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	categories handler.CategoryHandler,
	products handler.ProductHandler,
	staff handler.StaffHandler,
	orders handler.OrderHandler,
	sessions handler.SessionHandler,
	reports handler.ReportHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		categories.RegisterRoutes(pr)
		products.RegisterRoutes(pr)
		staff.RegisterRoutes(pr)
		orders.RegisterRoutes(pr)
		sessions.RegisterRoutes(pr)
		reports.RegisterRoutes(pr)
	})

	return r
}
