// Package api exposes archived runs and on-demand comparisons over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/memtrend/pkg/archive"
	"github.com/vjranagit/memtrend/pkg/compare"
)

// Server implements the HTTP API server
type Server struct {
	archive archive.Archive
	addr    string
	server  *http.Server
	log     *log.Logger
}

// NewServer creates a new API server. A nil logger falls back to the
// standard logger.
func NewServer(addr string, arc archive.Archive, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		archive: arc,
		addr:    addr,
		log:     logger,
	}
}

// routes builds the request router
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/runs", s.handleListRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/compare", s.handleCompare).Methods(http.MethodGet)

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// runSummary is the list representation of a run
type runSummary struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Workload   string    `json:"workload"`
	CreatedAt  time.Time `json:"created_at"`
	Iterations int       `json:"iterations"`
	Samples    int       `json:"samples"`
}

// compareResponse bundles the report with renderable curves
type compareResponse struct {
	*compare.Report
	Curves [2]compare.Curve `json:"curves"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleListRuns lists archived runs, optionally filtered by workload
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	var (
		runs []*archive.Run
		err  error
	)

	if workload := r.URL.Query().Get("workload"); workload != "" {
		runs, err = s.archive.Find(r.Context(), map[string]string{"workload": workload})
	} else {
		runs, err = s.archive.List(r.Context())
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("List failed: %v", err), http.StatusInternalServerError)
		return
	}

	summaries := make([]runSummary, len(runs))
	for i, run := range runs {
		summaries[i] = runSummary{
			ID:         run.ID,
			Label:      run.Label,
			Workload:   run.Workload,
			CreatedAt:  run.CreatedAt,
			Iterations: run.Iterations,
			Samples:    len(run.Samples),
		}
	}

	s.writeJSON(w, http.StatusOK, summaries)
}

// handleGetRun returns one archived run with its samples
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.archive.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			http.Error(w, fmt.Sprintf("Run %q not found", id), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Get failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

// handleCompare compares two archived runs
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	idA := r.URL.Query().Get("a")
	idB := r.URL.Query().Get("b")
	if idA == "" || idB == "" {
		http.Error(w, "Missing run parameters a and b", http.StatusBadRequest)
		return
	}

	runA, err := s.archive.Get(r.Context(), idA)
	if err != nil {
		s.writeGetError(w, idA, err)
		return
	}
	runB, err := s.archive.Get(r.Context(), idB)
	if err != nil {
		s.writeGetError(w, idB, err)
		return
	}

	report, err := compare.Compare(runA.Series(), runB.Series())
	if err != nil {
		var insufficient *compare.InsufficientDataError
		if errors.As(err, &insufficient) {
			http.Error(w, fmt.Sprintf("Comparison rejected: %v", err), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Comparison failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, compareResponse{
		Report: report,
		Curves: report.Curves(),
	})
}

// writeGetError maps archive read failures to response codes
func (s *Server) writeGetError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, fmt.Sprintf("Run %q not found", id), http.StatusNotFound)
		return
	}
	http.Error(w, fmt.Sprintf("Get failed: %v", err), http.StatusInternalServerError)
}

// writeJSON writes a JSON response body
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

// logRequests logs one line per served request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}
