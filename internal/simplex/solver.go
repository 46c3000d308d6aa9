package simplex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simplexviz/simplex-core/internal/tableau"
	"github.com/simplexviz/simplex-core/pkg/logger"
)

const (
	// DefaultMaxIterations caps the pivots of one solve across all phases.
	DefaultMaxIterations = 1000
	// DefaultEpsilon is the numeric tolerance used by selection rules and the
	// pivot guard.
	DefaultEpsilon = tableau.DefaultEpsilon
)

// Phase tags recorded in snapshots.
const (
	PhaseOne  = "phase1"
	PhaseTwo  = "phase2"
	PhaseDual = "dual"
)

// Options configures a Solver.
type Options struct {
	Method        Method
	Epsilon       float64
	MaxIterations int
	// DualFallback runs the two-phase method when the dual method is asked
	// for a problem that is not dual-feasible.
	DualFallback bool
	Limits       Limits
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Method:        MethodTwoPhase,
		Epsilon:       DefaultEpsilon,
		MaxIterations: DefaultMaxIterations,
		DualFallback:  true,
	}
}

// Solver runs one driver per call. It holds no state between calls and is
// safe for concurrent use.
type Solver struct {
	opts Options
	log  *slog.Logger
}

// NewSolver creates a Solver, filling unset options with defaults.
func NewSolver(opts Options) *Solver {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Solver{opts: opts, log: logger.With("component", "simplex")}
}

// Options returns the effective options.
func (s *Solver) Options() Options { return s.opts }

// Solve runs the configured method on p.
func (s *Solver) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	return s.SolveWith(ctx, p, s.opts.Method)
}

// SolveWith runs the given method on p. Infeasible, unbounded and capped runs
// are reported through Solution.Status; the error is reserved for invalid
// problems, numeric faults and cancellation.
func (s *Solver) SolveWith(ctx context.Context, p *Problem, method Method) (*Solution, error) {
	if method == MethodDual {
		sf, err := NormalizeDual(p, s.opts.Limits, s.opts.Epsilon)
		if err == nil {
			return s.run(ctx, sf, MethodDual)
		}
		ve, ok := AsValidation(err)
		if !ok || ve.Kind != NotDualFeasible || !s.opts.DualFallback {
			return nil, err
		}
		s.log.Warn("problem is not dual-feasible, falling back to two-phase", "reason", ve.Msg)
	}

	sf, err := Normalize(p, s.opts.Limits, s.opts.Epsilon)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, sf, MethodTwoPhase)
}

func (s *Solver) run(ctx context.Context, sf *StandardForm, method Method) (*Solution, error) {
	r := &runner{
		ctx:     ctx,
		tab:     sf.Tableau,
		eps:     s.opts.Epsilon,
		maxIter: s.opts.MaxIterations,
		rec:     &recorder{},
		log:     s.log.With("method", method.String()),
	}

	var (
		status Status
		err    error
		phase  string
	)
	if method == MethodDual {
		phase = PhaseDual
		status, err = r.dual()
	} else {
		status, phase, err = r.twoPhase(sf)
	}
	if err != nil {
		return nil, err
	}
	r.rec.finish(r.tab, phase)

	sol := extract(sf, r.tab, status, r.eps)
	sol.Method = method
	sol.Iterations = r.rec.pivots
	sol.Phase1Iterations = r.phase1Pivots
	sol.Snapshots = r.rec.snaps
	r.log.Debug("solve finished", "status", sol.Status.String(), "iterations", sol.Iterations)
	return sol, nil
}

// errIterationCap stops a driver when one more pivot would exceed the cap.
var errIterationCap = errors.New("iteration cap reached")

// runner owns the tableau for the duration of one solve.
type runner struct {
	ctx          context.Context
	tab          *tableau.Tableau
	eps          float64
	maxIter      int
	rec          *recorder
	log          *slog.Logger
	phase1Pivots int
}

// pivot records the pre-pivot state and applies the pivot.
func (r *runner) pivot(phase string, row, col int) error {
	if r.rec.pivots >= r.maxIter {
		return errIterationCap
	}
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("solve cancelled after %d pivots: %w", r.rec.pivots, err)
	}
	r.log.Debug("pivot",
		"phase", phase,
		"step", r.rec.pivots,
		"entering", r.tab.Label(col),
		"leaving", r.tab.Label(r.tab.BasicVar(row)),
		"row", row,
	)
	r.rec.before(r.tab, phase, row, col)
	if err := r.tab.Pivot(row, col); err != nil {
		return fmt.Errorf("%s pivot %d: %w", phase, r.rec.pivots, err)
	}
	r.rec.pivots++
	if phase == PhaseOne {
		r.phase1Pivots++
	}
	return nil
}

// outcome maps a pivot error to a terminal status.
func outcome(err error) (Status, error) {
	if errors.Is(err, errIterationCap) {
		return StatusMaxIterationsExceeded, nil
	}
	return StatusOptimal, err
}
