package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/Vovarama1992/pixelforge/internal/config"
)

func NewRouter(cfg config.Config, hConvert *ConvertHandler, hHealth *HealthHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition", "X-Page-Count"},
			MaxAge:         300,
		}),
	)

	RegisterRoutes(r, cfg, hConvert, hHealth)
	return r
}

func RegisterRoutes(r chi.Router, cfg config.Config, hConvert *ConvertHandler, hHealth *HealthHandler) {
	// --- liveness ---
	r.With(httputil.RecoverMiddleware).Get("/health", hHealth.Health)
	r.With(httputil.RecoverMiddleware).Get("/ping", hHealth.Ping)

	// --- конвертация ---
	mw := []func(http.Handler) http.Handler{httputil.RecoverMiddleware}
	if cfg.RateLimitPerMinute > 0 {
		mw = append(mw, httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}
	r.With(mw...).Post("/convert", hConvert.Convert)
}
