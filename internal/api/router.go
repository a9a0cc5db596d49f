package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/scheduling-service/internal/booking"
	"github.com/clinicore/scheduling-service/internal/intervention"
	"github.com/clinicore/scheduling-service/internal/metrics"
	"github.com/clinicore/scheduling-service/internal/schedule"
)

type RouterConfig struct {
	Slots         *schedule.Service
	Booker        *booking.Booker
	Lifecycle     *booking.Lifecycle
	Interventions *intervention.Service
	Store         *booking.Store
	Metrics       *metrics.Metrics

	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// Slot endpoints
	r.Post("/slots/generate", generateSlotsHandler(cfg.Slots, cfg.Metrics))
	r.Delete("/slots/{id}", deleteSlotHandler(cfg.Slots))
	r.Get("/providers/{providerID}/slots", listProviderSlotsHandler(cfg.Slots))

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Booker, cfg.Interventions, cfg.Metrics))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Store))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Booker, cfg.Metrics))
	r.Post("/appointments/{id}/session", recordSessionHandler(cfg.Lifecycle, cfg.Metrics))
	r.Post("/appointments/{id}/no-show", markNoShowHandler(cfg.Lifecycle, cfg.Metrics))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Lifecycle, cfg.Metrics))
	r.Post("/appointments/{id}/refer", referAppointmentHandler(cfg.Lifecycle, cfg.Metrics))
	r.Post("/appointments/{id}/close", closeInterventionHandler(cfg.Interventions))

	// Patient endpoints
	r.Get("/patients/{patientID}/appointments", listPatientAppointmentsHandler(cfg.Store))
	r.Get("/patients/{patientID}/intervention", deriveInterventionHandler(cfg.Interventions))

	return r
}
