package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidashi/courier-ledger/internal/ledger"
	"github.com/vaidashi/courier-ledger/internal/relay"
	"github.com/vaidashi/courier-ledger/internal/store"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

// Server exposes operational endpoints for the daemon: liveness, readiness
// and a few counters. It is not an API over the core; the core is consumed
// in-process.
type Server struct {
	httpServer *http.Server
	ledger     *ledger.Ledger
	journal    *relay.Journal
	store      *store.Store // nil when persistence is disabled
	logger     logger.Logger
}

// NewServer creates the ops server on the given port.
func NewServer(port int, l *ledger.Ledger, journal *relay.Journal, st *store.Store, log logger.Logger) *Server {
	s := &Server{
		ledger:  l,
		journal: journal,
		store:   st,
		logger:  log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return s
}

// Start begins serving. Blocks until shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("Readiness check failed", "error", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders":         s.ledger.Count(),
		"pending_events": s.journal.Len(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}
