// Package httpapi is Warden's HTTP surface: the metrics/meters ingress, the
// read-only query views over the document store, and the alarm-definition /
// alarm / notification-method CRUD, all routed with go-chi/chi/v5, modeled
// on the teacher's internal/server/server.go router-construction idiom.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wardenhq/warden/internal/bus"
	"github.com/wardenhq/warden/internal/obsmetrics"
	"github.com/wardenhq/warden/internal/store"
)

// Config holds the Server's dependencies.
type Config struct {
	Store       store.Client
	Producer    bus.Producer
	Metrics     *obsmetrics.Metrics
	Hub         *AlarmHub // optional: feeds GET /v2.0/alarms/stream
	MaxBodySize int64     // default 1MiB
}

// Server is Warden's HTTP API.
type Server struct {
	Router chi.Router
	cfg    Config
}

// New builds a Server with every middleware and route mounted.
func New(cfg Config) *Server {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(MaxBodySize(cfg.MaxBodySize))

	s := &Server{Router: r, cfg: cfg}
	s.registerRoutes()
	return s
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	slog.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router)
}

func (s *Server) registerRoutes() {
	ingress := &IngressHandler{Producer: s.cfg.Producer, Metrics: s.cfg.Metrics}
	query := &QueryHandler{Store: s.cfg.Store}
	defs := &AlarmDefHandler{Store: s.cfg.Store}
	alarms := &AlarmHandler{Store: s.cfg.Store}
	notif := &NotificationHandler{Store: s.cfg.Store}
	versions := &VersionsHandler{}

	s.Router.Get("/healthz", HealthCheck)
	if s.cfg.Metrics != nil {
		s.Router.Get("/metrics", s.cfg.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/", versions.List)
	s.Router.Get("/{versionID}", versions.Get)

	s.Router.Route("/v2.0", func(r chi.Router) {
		r.Post("/metrics", ingress.Metrics)
		r.Post("/meters", ingress.Meters)

		r.Get("/metrics", query.ListMetrics)
		r.Get("/metrics/measurements", query.Measurements)
		r.Get("/metrics/statistics", query.Statistics)

		r.Route("/alarm-definitions", func(r chi.Router) {
			r.Get("/", defs.List)
			r.Post("/", defs.Create)
			r.Get("/{id}", defs.Get)
			r.Put("/{id}", defs.Update)
			r.Delete("/{id}", defs.Delete)
		})

		r.Route("/alarms", func(r chi.Router) {
			r.Get("/", alarms.List)
			if s.cfg.Hub != nil {
				r.Get("/stream", s.cfg.Hub.ServeWS)
			}
			r.Get("/{id}", alarms.Get)
			r.Put("/{id}", alarms.Update)
			r.Delete("/{id}", alarms.Delete)
		})

		r.Route("/notification-methods", func(r chi.Router) {
			r.Get("/", notif.List)
			r.Post("/", notif.Create)
			r.Get("/{id}", notif.Get)
			r.Put("/{id}", notif.Update)
			r.Delete("/{id}", notif.Delete)
		})
	})
}
