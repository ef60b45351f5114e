// Package httpapi serves the integration boundary over HTTP with form
// encoded requests, the way the browser front-end submits them.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	integrations "github.com/goliatone/go-integrations"
	"github.com/goliatone/go-integrations/core"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	defaultMaxFormBytes int64 = 1 << 20
	callbackClosePage         = "<html><script>window.close();</script></html>"
)

type Option func(*Server)

func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = append([]string(nil), origins...)
	}
}

// WithMetricsHandler mounts handler on GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

func WithMaxFormBytes(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxFormBytes = limit
		}
	}
}

type Server struct {
	facade       *integrations.Facade
	logger       core.Logger
	corsOrigins  []string
	metrics      http.Handler
	maxFormBytes int64
	router       chi.Router
}

func New(facade *integrations.Facade, opts ...Option) (*Server, error) {
	if facade == nil {
		return nil, fmt.Errorf("httpapi: facade is required")
	}
	_, logger := glog.Resolve("integrations.http", nil, nil)
	server := &Server{
		facade:       facade,
		logger:       glog.Ensure(logger),
		corsOrigins:  []string{"http://localhost:3000"},
		maxFormBytes: defaultMaxFormBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(server)
		}
	}
	server.router = server.routes()
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withRequestLog)
	r.Use(withCORS(s.corsOrigins))

	r.Get("/", s.ping)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/integrations", func(r chi.Router) {
		r.Post("/authorize", s.authorize)
		r.Get("/oauth2callback", s.oauth2Callback)
		r.Post("/credentials", s.credentials)
		r.Post("/load", s.loadItems)
		r.Get("/providers", s.providers)
	})
	return r
}
