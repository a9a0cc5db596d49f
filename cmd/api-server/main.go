package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/clinicore/scheduling-service/internal/api"
	"github.com/clinicore/scheduling-service/internal/booking"
	"github.com/clinicore/scheduling-service/internal/config"
	"github.com/clinicore/scheduling-service/internal/db"
	"github.com/clinicore/scheduling-service/internal/intervention"
	"github.com/clinicore/scheduling-service/internal/meeting"
	"github.com/clinicore/scheduling-service/internal/metrics"
	"github.com/clinicore/scheduling-service/internal/notify"
	redisclient "github.com/clinicore/scheduling-service/internal/redis"
	"github.com/clinicore/scheduling-service/internal/risk"
	"github.com/clinicore/scheduling-service/internal/schedule"
)

var version = "dev"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	loc := cfg.Location()

	slotRepo := schedule.NewPgRepository(pgPool)
	slots := schedule.NewService(slotRepo, loc, cfg.AllowPastSlotDelete, logger)

	var links meeting.Provider = meeting.Disabled{}
	if cfg.MeetingLinkURL != "" {
		links = meeting.NewHTTPProvider(cfg.MeetingLinkURL, cfg.MeetingLinkTimeout, logger)
	}

	var notifier notify.Dispatcher
	if cfg.SendGridAPIKey != "" {
		notifier = notify.NewEmailDispatcher(notify.EmailConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFrom,
			FromName:  cfg.SendGridFromName,
		}, logger)
	} else {
		notifier = notify.NewLogDispatcher(logger)
	}

	var assessor risk.Assessor = risk.Denied{}
	if cfg.RiskURL != "" {
		assessor = risk.NewHTTPAssessor(cfg.RiskURL, cfg.RiskTimeout)
	}

	store := booking.NewStore(pgPool)
	booker := booking.NewBooker(store, booking.BookerConfig{
		Locker:                    redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL),
		Links:                     links,
		Notifier:                  notifier,
		Location:                  loc,
		LinkTimeout:               cfg.MeetingLinkTimeout,
		NotifyTimeout:             cfg.NotifyTimeout,
		RescheduleCancelsOriginal: cfg.RescheduleCancelsOriginal,
		Metrics:                   m,
		Logger:                    logger,
	})
	lifecycle := booking.NewLifecycle(store, assessor, cfg.RiskTimeout, logger)
	interventions := intervention.NewService(intervention.NewPgRepository(pgPool), logger)

	router := api.NewRouter(api.RouterConfig{
		Slots:         slots,
		Booker:        booker,
		Lifecycle:     lifecycle,
		Interventions: interventions,
		Store:         store,
		Metrics:       m,
		PgPool:        pgPool,
		Redis:         rdb,
		Registry:      registry,
		Logger:        logger,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
