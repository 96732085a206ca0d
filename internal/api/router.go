package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/invoice"
	"github.com/camhien7804/Nha-Khoa-OU/internal/payment"
)

type RouterConfig struct {
	Service    *appointment.Service
	Gateway    *payment.Client
	Reconciler *payment.Reconciler
	Invoices   *invoice.Renderer
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Queue      QueueStats
	Registry   *prometheus.Registry
	Logger     zerolog.Logger
	JWTSecret  string
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Queue, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The gateway calls this directly; it cannot carry our tokens.
		r.Post("/payments/ipn", ipnHandler(cfg.Reconciler))

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(cfg.JWTSecret))

			r.Post("/appointments", createAppointmentHandler(cfg.Service))
			r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
			r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
			r.Get("/appointments/{id}/invoice", downloadInvoiceHandler(cfg.Service, cfg.Invoices))

			r.With(RequireRoles(appointment.RolePatient)).
				Get("/appointments/mine", myAppointmentsHandler(cfg.Service))
			r.With(RequireRoles(appointment.RolePatient)).
				Get("/appointments/history", myHistoryHandler(cfg.Service))
			r.With(RequireRoles(appointment.RoleDentist)).
				Get("/appointments/assigned", dentistAppointmentsHandler(cfg.Service))

			r.With(RequireRoles(appointment.RoleAdmin, appointment.RoleDentist)).
				Patch("/appointments/{id}/status", updateStatusHandler(cfg.Service))
			r.With(RequireRoles(appointment.RoleAdmin, appointment.RoleDentist)).
				Post("/appointments/{id}/treatments", appendTreatmentHandler(cfg.Service))
			r.With(RequireRoles(appointment.RoleAdmin, appointment.RoleDentist)).
				Get("/patients/{id}/appointments", patientHistoryHandler(cfg.Service))

			r.Post("/payments", createPaymentHandler(cfg.Service, cfg.Gateway))
		})
	})

	return r
}
