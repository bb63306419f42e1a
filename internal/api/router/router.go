// Package router assembles the HTTP surface of the scheduling platform.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prosaude/scheduling-platform/internal/http/handlers"
	httpmiddleware "github.com/prosaude/scheduling-platform/internal/http/middleware"
	"github.com/prosaude/scheduling-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Appointments    *handlers.AppointmentsHandler
	Replies         *handlers.RepliesHandler
	AdminReminders  *handlers.AdminRemindersHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
	HealthCheck     http.HandlerFunc
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		if cfg.HealthCheck != nil {
			public.Get("/health", cfg.HealthCheck)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Appointments != nil {
			public.Post("/appointments", cfg.Appointments.Book)
			public.Patch("/appointments/{appointmentID}", cfg.Appointments.Reschedule)
			public.Get("/providers/{providerID}/slots", cfg.Appointments.Slots)
		}
		if cfg.Replies != nil {
			public.Post("/webhooks/replies", cfg.Replies.Handle)
		}
	})

	// Admin endpoints behind the JWT gate.
	if cfg.AdminReminders != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/reminders/stats", cfg.AdminReminders.Stats)
			admin.Post("/reminders", cfg.AdminReminders.Create)
		})
	}

	return r
}
