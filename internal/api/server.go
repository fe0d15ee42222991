package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/ira-chat/ira/internal/analytics"
	"github.com/ira-chat/ira/internal/metrics"
)

// ServerConfig wires the router server's dependencies.
type ServerConfig struct {
	ListenAddress string
	Port          int
	MaxBodyBytes  int64

	Router    Router
	Pools     PoolSnapshotter
	Collector *metrics.Collector
	// Emit is the analytics sink; nil disables event emission.
	Emit func(analytics.Event)
	// Ready gates /readyz; nil means always ready.
	Ready ReadyFunc
}

// Server wraps the HTTP server and mux for the router front door.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// NewServer creates a router server wired with all routes.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	chat := RequestBodyLimitMiddleware(cfg.MaxBodyBytes, HandleChat(cfg.Router, cfg.Collector, cfg.Emit))
	mux.Handle("POST /chat", chat)
	mux.Handle("GET /pools", HandlePools(cfg.Pools))
	mux.Handle("GET /metrics", HandleMetrics(cfg.Collector))
	mux.Handle("GET /healthz", HandleHealthz())
	mux.Handle("GET /readyz", HandleReadyz(cfg.Ready))

	handler := CorrelationMiddleware("router", mux)
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.ListenAddress, strconv.Itoa(cfg.Port)),
		Handler: handler,
	}
	return &Server{httpServer: srv, handler: handler}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
