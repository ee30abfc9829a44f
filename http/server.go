// Package http serves the prediction page, the JSON API, the websocket
// session endpoint and the metrics endpoint.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"svmpredict/config"
	"svmpredict/monitoring"
	"svmpredict/workflow"
)

const maxRequestBody = 1 << 20

// ServerConfig holds the listener and request settings of the HTTP server.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
}

// DefaultServerConfig listens on :8080 with a 30s request timeout and allows
// any origin.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// ServerConfigFrom takes the http section of the service configuration.
func ServerConfigFrom(c *config.Config) ServerConfig {
	return ServerConfig{
		Port:           c.Http.Port,
		Timeout:        c.Http.Timeout,
		AllowedOrigins: c.Http.AllowedOrigins,
	}
}

// Server serves the router built by NewRouter.
type Server struct {
	server *http.Server
	config ServerConfig
	hub    *SessionHub
	logger *zap.Logger
}

// NewServer builds a server and its websocket hub. It does not listen yet.
func NewServer(cfg ServerConfig, wf *workflow.Workflow, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := NewSessionHub(wf, logger.Named("ws"))
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewRouter(cfg, wf, metrics, hub, logger),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		config: cfg,
		hub:    hub,
		logger: logger,
	}
}

// NewRouter builds the full handler tree. The websocket route sits outside
// the request timeout.
func NewRouter(cfg ServerConfig, wf *workflow.Workflow, metrics *monitoring.Metrics, hub *SessionHub, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger.Named("access")),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
	))

	pages := newPageHandler(wf, logger.Named("page"))
	api := newAPIHandler(wf, hub, logger.Named("api"))

	r.Group(func(r chi.Router) {
		r.Use(Chain(TimeoutMiddleware(cfg.Timeout), RequestSizeMiddleware(maxRequestBody)))
		r.Get("/", pages.ServeHTTP)
		r.Post("/", pages.ServeHTTP)
		r.Get("/api/health", api.health)
		r.Get("/api/datasets", api.listDatasets)
		r.Get("/api/datasets/{name}", api.getDataset)
		r.Post("/api/datasets/{name}/predict", api.predict)
		if metrics != nil {
			r.Method(http.MethodGet, "/metrics", metrics.Handler())
		}
	})
	if hub != nil {
		r.Get("/api/ws", hub.ServeHTTP)
	}
	return r
}

// Start listens and serves until Stop. It returns nil after a clean stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server started",
		zap.String("addr", ln.Addr().String()),
		zap.String("websocket", "/api/ws"))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and closes websocket sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	s.hub.CloseAll()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
