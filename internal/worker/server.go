package worker

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/ira-chat/ira/internal/api"
	"github.com/ira-chat/ira/internal/model"
)

// ServerConfig wires a worker server.
type ServerConfig struct {
	ListenAddress string
	Port          int
	MaxBodyBytes  int64
	Processor     *Processor
}

// Server is the worker's HTTP surface: POST /process and GET /healthz.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// NewServer creates a worker server.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	process := api.RequestBodyLimitMiddleware(cfg.MaxBodyBytes, HandleProcess(cfg.Processor))
	mux.Handle("POST /process", process)
	mux.Handle("GET /healthz", api.HandleHealthz())

	handler := api.CorrelationMiddleware("worker-"+cfg.Processor.pool, mux)
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.ListenAddress, strconv.Itoa(cfg.Port)),
		Handler: handler,
	}
	return &Server{httpServer: srv, handler: handler}
}

// HandleProcess serves POST /process.
func HandleProcess(p *Processor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid JSON: "+err.Error())
			return
		}
		if req.UserID == "" || req.Message == "" || !req.Tier.IsValid() {
			api.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "user_id, message, and tier are required")
			return
		}

		reply, err := p.Process(r.Context(), req)
		if err != nil {
			// Context cancellation from a hung-up router, or a simulated
			// model failure. The router treats non-200 as failover.
			api.WriteError(w, http.StatusServiceUnavailable, "PROCESS_FAILED", err.Error())
			return
		}
		api.WriteJSON(w, http.StatusOK, reply)
	})
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
