package solverd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/simplexviz/simplex-core/internal/metrics"
	"github.com/simplexviz/simplex-core/internal/simplex"
	"github.com/simplexviz/simplex-core/pkg/config"
	"github.com/simplexviz/simplex-core/pkg/logger"
)

// ErrSolveNotFound is returned for unknown solve IDs.
var ErrSolveNotFound = errors.New("solve not found")

// Service runs solve requests and records them in history and metrics.
type Service struct {
	solver        *simplex.Solver
	defaultMethod simplex.Method
	store         *SolveStore
	collector     *metrics.Collector
	log           *slog.Logger
}

// SolverOptions maps the solver config section to engine options.
func SolverOptions(cfg config.Solver) (simplex.Options, error) {
	method, err := simplex.ParseMethod(cfg.DefaultMethod)
	if err != nil {
		return simplex.Options{}, err
	}
	return simplex.Options{
		Method:        method,
		Epsilon:       cfg.Epsilon,
		MaxIterations: cfg.MaxIterations,
		DualFallback:  cfg.DualFallback,
		Limits: simplex.Limits{
			MaxVariables:   cfg.MaxVariables,
			MaxConstraints: cfg.MaxConstraints,
		},
	}, nil
}

// NewService creates a service. A nil store or collector gets a fresh one.
func NewService(cfg config.Solver, store *SolveStore, collector *metrics.Collector) (*Service, error) {
	opts, err := SolverOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid solver config: %w", err)
	}
	if store == nil {
		store = NewSolveStore(DefaultHistorySize)
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	log := logger.With("component", "solverd")
	return &Service{
		solver:        simplex.NewSolver(opts),
		defaultMethod: opts.Method,
		store:         store,
		collector:     collector,
		log:           log,
	}, nil
}

// Solve runs req without storing it in history.
func (s *Service) Solve(ctx context.Context, req *SolveRequest) (*SolveResponse, error) {
	resp, _, err := s.run(ctx, req)
	return resp, err
}

// SolveAndRecord runs req and stores the result in history.
func (s *Service) SolveAndRecord(ctx context.Context, req *SolveRequest) (*SolveRecord, error) {
	resp, elapsed, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	rec := &SolveRecord{
		DurationMs: float64(elapsed) / float64(time.Millisecond),
		Request:    req,
		Result:     resp,
	}
	if err := s.store.Add(rec); err != nil {
		return nil, fmt.Errorf("failed to store solve: %w", err)
	}
	s.log.Info("solve recorded", "solve_id", rec.ID, "status", resp.Status, "method", resp.Method)
	return rec, nil
}

// Get returns a stored solve.
func (s *Service) Get(id string) (*SolveRecord, error) {
	rec, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSolveNotFound, id)
	}
	return rec, nil
}

// List returns stored solves, newest first.
func (s *Service) List(limit, offset int, status string) []*SolveRecord {
	return s.store.List(limit, offset, status)
}

// Metrics returns the solve metrics summary.
func (s *Service) Metrics() *metrics.Summary {
	return s.collector.GetSummary()
}

func (s *Service) run(ctx context.Context, req *SolveRequest) (*SolveResponse, time.Duration, error) {
	start := time.Now()
	if req == nil {
		return nil, 0, fmt.Errorf("%w: request is required", ErrBadRequest)
	}

	p, method, err := req.Problem(s.defaultMethod)
	if err != nil {
		s.observe(method.String(), 0, time.Since(start), err)
		return nil, 0, err
	}

	sol, err := s.solver.SolveWith(ctx, p, method)
	elapsed := time.Since(start)
	if err != nil {
		s.observe(method.String(), 0, elapsed, err)
		s.log.Warn("solve failed", "method", method.String(), "error", err)
		return nil, elapsed, err
	}

	resp := NewSolveResponse(sol)
	s.collector.Observe(metrics.Observation{
		Method:     resp.Method,
		Status:     resp.Status,
		Iterations: resp.Iterations,
		Duration:   elapsed,
	})
	s.log.Info("solve completed",
		"method", resp.Method,
		"status", resp.Status,
		"iterations", resp.Iterations,
		"duration_ms", float64(elapsed)/float64(time.Millisecond),
	)
	return resp, elapsed, nil
}

func (s *Service) observe(method string, iterations int, elapsed time.Duration, err error) {
	_, kind := classify(err)
	s.collector.Observe(metrics.Observation{
		Method:     method,
		Status:     kind,
		Iterations: iterations,
		Duration:   elapsed,
		Failed:     true,
	})
}

// classify maps an error to an HTTP status and a kind string.
func classify(err error) (int, string) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "RequestTooLarge"
	case errors.Is(err, simplex.ErrValidation):
		ve, _ := simplex.AsValidation(err)
		return http.StatusBadRequest, string(ve.Kind)
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, ErrSolveNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, simplex.ErrNumericInstability):
		return http.StatusInternalServerError, "NumericInstability"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Canceled"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}
