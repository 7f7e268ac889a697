// Package api exposes the internal ops HTTP surface: health, metrics,
// recent run reports, and a manual batch trigger. The public catalog
// API is a separate collaborator and is not served here.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/minsukl/toondex-ingest/internal/ingest"
	"github.com/minsukl/toondex-ingest/internal/metrics"
	"github.com/minsukl/toondex-ingest/internal/store/postgres"
)

// ReportLister reads recent audit rows.
type ReportLister interface {
	ListRecent(ctx context.Context, limit int) ([]postgres.StoredReport, error)
}

// BatchRunner executes one ingestion batch.
type BatchRunner interface {
	RunBatch(ctx context.Context) ingest.BatchSummary
}

// Server wires the ops routes.
type Server struct {
	router  chi.Router
	reports ReportLister
	batches BatchRunner
	logger  *zap.Logger
	port    int
	running atomic.Bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reports ReportLister, batches BatchRunner, logger *zap.Logger, port int) *Server {
	s := &Server{
		reports: reports,
		batches: batches,
		logger:  logger,
		port:    port,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/reports", s.listReports)
		r.Post("/batches", s.triggerBatch)
	})

	s.router = r
	return s
}

// Handler returns the underlying router, primarily for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("ops server listening", zap.Int("port", s.port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown ops server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}
	reports, err := s.reports.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list reports failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []postgres.StoredReport{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// triggerBatch starts one batch in the background. Only one batch runs
// at a time; overlapping triggers get 409.
func (s *Server) triggerBatch(w http.ResponseWriter, r *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		s.writeError(w, http.StatusConflict, "a batch is already running")
		return
	}
	reqID := middleware.GetReqID(r.Context())
	go func() {
		defer s.running.Store(false)
		summary := s.batches.RunBatch(context.Background())
		outcomes := summary.Outcomes()
		s.logger.Info("triggered batch finished",
			zap.String("request_id", reqID),
			zap.Int("ok", outcomes[ingest.RunOK]),
			zap.Int("partial", outcomes[ingest.RunPartial]),
			zap.Int("failed", outcomes[ingest.RunFailed]),
		)
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
