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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/appointment-assistant/internal/api"
	"github.com/hackgods/appointment-assistant/internal/appointment"
	"github.com/hackgods/appointment-assistant/internal/assistant"
	"github.com/hackgods/appointment-assistant/internal/config"
	"github.com/hackgods/appointment-assistant/internal/db"
	"github.com/hackgods/appointment-assistant/internal/directory"
	"github.com/hackgods/appointment-assistant/internal/ledger"
	"github.com/hackgods/appointment-assistant/internal/llm"
	"github.com/hackgods/appointment-assistant/internal/metrics"
	"github.com/hackgods/appointment-assistant/internal/notify"
	"github.com/hackgods/appointment-assistant/internal/observability"
	redisclient "github.com/hackgods/appointment-assistant/internal/redis"
	"github.com/hackgods/appointment-assistant/internal/sanity"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", "api-server", "env", cfg.Env)
	logger.Info("api-server starting up", "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, cfg, logger); err != nil {
		logger.Error("api-server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("api-server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: "appointment-assistant",
		Version:     version,
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("error flushing traces", "error", err)
		}
	}()
	if cfg.OTLPEndpoint != "" {
		logger.Info("trace export enabled", "endpoint", cfg.OTLPEndpoint)
	}

	dir := directory.Default()
	if cfg.DoctorsFile != "" {
		loaded, err := directory.LoadFile(cfg.DoctorsFile)
		if err != nil {
			return err
		}
		dir = loaded
	}
	logger.Info("doctor directory loaded", "doctors", len(dir.Names()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)

	var checks []api.DependencyCheck

	var events appointment.EventRepository
	if cfg.PostgresDSN != "" {
		pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		events = appointment.NewPgEventRepository(pool)
		checks = append(checks, api.PostgresCheck(pool))
		logger.Info("connected to Postgres, booking events enabled")
	}

	var locker redisclient.Locker
	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", "error", err)
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		checks = append(checks, api.RedisCheck(rdb))
		logger.Info("connected to Redis", "addr", cfg.RedisAddr)
	} else {
		locker = redisclient.NewLocalSlotLocker()
		logger.Warn("redis disabled, slot lock is process local")
	}

	sanityClient, err := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		Token:      cfg.Sanity.Token,
		APIVersion: cfg.Sanity.APIVersion,
		BaseURL:    cfg.Sanity.BaseURL,
		Timeout:    cfg.SinkTimeout,
	})
	if err != nil {
		return err
	}
	webhook, err := notify.NewWebhook(cfg.WebhookURL, cfg.SinkTimeout)
	if err != nil {
		return err
	}
	localLog, err := ledger.New(cfg.LocalLogPath)
	if err != nil {
		return err
	}

	svc := appointment.NewService(appointment.Sinks{
		Notifier: webhook,
		Remote:   sanity.NewStore(sanityClient),
		Local:    localLog,
	}, locker, events, m, logger)

	opts := assistant.Options{
		RequireEmail: cfg.RequireEmail,
		Metrics:      m,
		Logger:       logger,
	}
	if cfg.LLMEnabled() {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
		if err != nil {
			return err
		}
		opts.Extractor = gemini
		opts.Phraser = gemini
		logger.Info("language model enabled", "model", gemini.Name())
	} else {
		logger.Warn("GEMINI_API_KEY not set, using keyword extraction and plain replies")
	}

	router := api.NewRouter(api.RouterConfig{
		Directory: dir,
		Sessions:  assistant.NewSessionStore(cfg.MaxSessions, cfg.SessionTTL, m, logger),
		Assistant: assistant.NewOrchestrator(dir, svc, opts),
		Checks:    checks,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:    logger,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
