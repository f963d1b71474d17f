// Package api exposes the on-demand invocation surface over HTTP.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mikey/delivery-monitor/internal/core"
)

// Server wires the monitor's HTTP endpoints into a chi router.
type Server struct {
	orchestrator core.Orchestrator
	runs         core.TestRunStore
	db           *sql.DB
	logger       *zap.Logger
	listenAddr   string
	httpServer   *http.Server
}

// NewServer creates a new API server. db may be nil when the monitor
// runs without a platform connection (health then only reports up).
func NewServer(
	orchestrator core.Orchestrator,
	runs core.TestRunStore,
	db *sql.DB,
	logger *zap.Logger,
	listenAddr string,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		runs:         runs,
		db:           db,
		logger:       logger,
		listenAddr:   listenAddr,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/delivery-servers", func(r chi.Router) {
		r.Post("/{id}/test", s.handleRunTest)
		r.Get("/{id}/verdicts", s.handleListVerdicts)
	})
	return r
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.Router(),
	}
	go func() {
		s.logger.Info("API server listening", zap.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down, letting in-flight requests finish.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// serverID parses the id route parameter. A missing or malformed id is
// treated the same as an unknown server.
func serverID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleRunTest(w http.ResponseWriter, r *http.Request) {
	id, ok := serverID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery server not found"})
		return
	}

	err := s.orchestrator.RunForServer(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Test completed successfully"})
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery server not found"})
		return
	}

	s.logger.Error("On-demand test failed", zap.Int64("server_id", id), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) handleListVerdicts(w http.ResponseWriter, r *http.Request) {
	id, ok := serverID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "delivery server not found"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	verdicts, err := s.runs.ListByServer(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("Failed to list verdicts", zap.Int64("server_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type verdictBody struct {
		RunID        int64     `json:"run_id"`
		ServerID     int64     `json:"server_id"`
		Status       string    `json:"status"`
		ErrorMessage string    `json:"error_message,omitempty"`
		RecordedAt   time.Time `json:"recorded_at"`
	}
	body := make([]verdictBody, 0, len(verdicts))
	for _, v := range verdicts {
		body = append(body, verdictBody{
			RunID:        v.RunID,
			ServerID:     v.ServerID,
			Status:       string(v.Status),
			ErrorMessage: v.ErrorMessage,
			RecordedAt:   v.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
