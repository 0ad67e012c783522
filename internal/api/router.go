package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/appointment-assistant/internal/assistant"
	"github.com/hackgods/appointment-assistant/internal/directory"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

// Turner handles one chat turn for a session.
type Turner interface {
	Handle(ctx context.Context, sess *assistant.Session, text string, emit func(string)) (assistant.Reply, error)
}

type RouterConfig struct {
	Directory *directory.Directory
	Sessions  *assistant.SessionStore
	Assistant Turner
	Checks    []DependencyCheck
	Metrics   http.Handler // defaults to the global Prometheus registry
	Logger    *logging.Logger
	Env       string
	Version   string
	PongWait  time.Duration // websocket keepalive window, 60s when zero
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics)

	h := &chatHandler{
		dir:       cfg.Directory,
		sessions:  cfg.Sessions,
		assistant: cfg.Assistant,
		logger:    cfg.Logger,
		pongWait:  cfg.PongWait,
	}

	r.Get("/doctors", h.listDoctors)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.deleteSession)
			r.Get("/transcript", h.transcript)
			r.Post("/messages", h.sendMessage)
			r.Get("/ws", h.chatSocket)
		})
	})

	return r
}
