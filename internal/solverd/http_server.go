package solverd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/simplexviz/simplex-core/pkg/config"
	"github.com/simplexviz/simplex-core/pkg/logger"
	"github.com/simplexviz/simplex-core/pkg/utils"
)

type HTTPServer struct {
	mux            *http.ServeMux
	service        *Service
	allowedOrigins []string
	maxBodyBytes   int64
}

func NewHTTPServer(service *Service, cfg config.Server) *HTTPServer {
	s := &HTTPServer{
		mux:            http.NewServeMux(),
		service:        service,
		allowedOrigins: cfg.AllowedOrigins,
		maxBodyBytes:   cfg.MaxBodyBytes,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = 1 << 20
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/api/solve", s.handleSolve)
	s.mux.HandleFunc("/api/solve/", s.handleSolve)
	s.mux.HandleFunc("/v1/solves", s.handleSolves)
	s.mux.HandleFunc("/v1/solves/", s.handleSolveByID)
	s.mux.HandleFunc("/v1/metrics", s.handleMetrics)

	return s
}

// Handler returns the mux wrapped with request logging and CORS
func (s *HTTPServer) Handler() http.Handler {
	return s.withRequestLog(s.withCORS(s.mux))
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSolve handles POST /api/solve/, the endpoint the UI posts to. The
// response body is the bare solve response.
func (s *HTTPServer) handleSolve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/solve" && r.URL.Path != "/api/solve/" {
		s.writeError(w, http.StatusNotFound, "NotFound", "not found")
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}

	req, err := s.decode(w, r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	resp, err := s.service.Solve(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSolves handles /v1/solves
func (s *HTTPServer) handleSolves(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSolve(w, r)
	case http.MethodGet:
		s.handleListSolves(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

// handleSolveByID handles /v1/solves/{id} and /v1/solves/{id}/tables
func (s *HTTPServer) handleSolveByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "BadRequest", "solve ID is required")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}

	if strings.HasSuffix(path, "/tables") {
		s.handleGetTables(w, r, strings.TrimSuffix(path, "/tables"))
		return
	}
	if strings.Contains(path, "/") {
		s.writeError(w, http.StatusNotFound, "NotFound", "not found")
		return
	}

	rec, err := s.service.Get(path)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleCreateSolve handles POST /v1/solves
func (s *HTTPServer) handleCreateSolve(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(w, r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	rec, err := s.service.SolveAndRecord(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":     rec.ID,
		"result": rec.Result,
	})
}

// handleListSolves handles GET /v1/solves with pagination and filtering
func (s *HTTPServer) handleListSolves(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	recs := s.service.List(limit, offset, r.URL.Query().Get("status"))
	solves := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		solves = append(solves, rec.Summary())
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"solves": solves,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(solves),
		},
	})
}

// handleGetTables handles GET /v1/solves/{id}/tables
func (s *HTTPServer) handleGetTables(w http.ResponseWriter, _ *http.Request, id string) {
	rec, err := s.service.Get(id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":     rec.ID,
		"tables": rec.Result.Tables,
	})
}

// handleMetrics handles GET /v1/metrics
func (s *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.Metrics())
}

// decode reads a size-limited request body
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request) (*SolveRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return DecodeRequestYAML(body)
	}
	return DecodeRequest(body)
}

func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(s.allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", float64(time.Since(start))/float64(time.Millisecond),
		)
	})
}

// Helper functions

// writeJSON encodes data before committing the status, so an unencodable
// value becomes a 500 instead of an empty 200.
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]any{
			"error": "failed to encode response: " + err.Error(),
			"kind":  "Internal",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logger.Error("failed to write JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
		"kind":  kind,
	})
}

// writeErr maps service errors to status codes
func (s *HTTPServer) writeErr(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	s.writeError(w, status, kind, err.Error())
}
