// Package router wires the HTTP surface of the dashboard service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/cep"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/dashboard"
	httpmiddleware "github.com/rafaelmendoncavaz/duofisio-sub000/internal/http/middleware"
	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/patients"
	"github.com/rafaelmendoncavaz/duofisio-sub000/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Dashboard          *dashboard.Handler
	Stats              *dashboard.StatsHandler
	Patients           *patients.Handler
	CEP                *cep.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Dashboard.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/dashboard", func(d chi.Router) {
		d.Post("/refresh", cfg.Dashboard.Refresh)
		d.Get("/appointments", cfg.Dashboard.Appointments)
		d.Post("/appointments", cfg.Dashboard.CreateAppointment)
		d.Put("/appointments/{id}", cfg.Dashboard.UpdateAppointment)
		d.Post("/appointments/{id}/repeat", cfg.Dashboard.RepeatSessions)
		d.Delete("/appointments/{id}", cfg.Dashboard.DeleteAppointment)
		d.Put("/filter", cfg.Dashboard.SetFilter)
		d.Post("/navigate/{unit}/{direction}", cfg.Dashboard.Navigate)
		d.Get("/sessions", cfg.Dashboard.Sessions)
		d.Patch("/sessions/{id}/status", cfg.Dashboard.UpdateSessionStatus)
		d.Route("/views", func(v chi.Router) {
			v.Get("/daily", cfg.Dashboard.DailyView)
			v.Get("/weekly", cfg.Dashboard.WeeklyView)
			v.Get("/monthly", cfg.Dashboard.MonthlyView)
			v.Get("/day/{date}", cfg.Dashboard.DayDetailView)
		})
		d.Post("/logout", cfg.Dashboard.Logout)
		if cfg.Stats != nil {
			d.Get("/stats", cfg.Stats.Stats)
		}
	})

	if cfg.Patients != nil {
		r.Route("/patients", func(p chi.Router) {
			p.Post("/refresh", cfg.Patients.Refresh)
			p.Get("/search", cfg.Patients.Search)
		})
	}

	if cfg.CEP != nil {
		r.Get("/cep/{cep}", cfg.CEP.Lookup)
	}

	return r
}
