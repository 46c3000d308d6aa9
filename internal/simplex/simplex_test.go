package simplex_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/simplexviz/simplex-core/internal/simplex"
	"github.com/simplexviz/simplex-core/internal/tableau"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func le(rhs float64, coefs map[string]float64) simplex.Constraint {
	return simplex.Constraint{Coefficients: coefs, Relation: simplex.LessEqual, RHS: rhs}
}

func ge(rhs float64, coefs map[string]float64) simplex.Constraint {
	return simplex.Constraint{Coefficients: coefs, Relation: simplex.GreaterEqual, RHS: rhs}
}

func eq(rhs float64, coefs map[string]float64) simplex.Constraint {
	return simplex.Constraint{Coefficients: coefs, Relation: simplex.Equal, RHS: rhs}
}

func scenarioA() *simplex.Problem {
	return &simplex.Problem{
		Sense:     simplex.Maximize,
		Objective: map[string]float64{"x1": 2, "x2": 3},
		Constraints: []simplex.Constraint{
			le(4, map[string]float64{"x1": 1, "x2": 1}),
			le(2, map[string]float64{"x1": 1}),
			le(3, map[string]float64{"x2": 1}),
		},
	}
}

func scenarioB() *simplex.Problem {
	return &simplex.Problem{
		Sense:     simplex.Minimize,
		Objective: map[string]float64{"x1": 1, "x2": 1},
		Constraints: []simplex.Constraint{
			eq(4, map[string]float64{"x1": 1, "x2": 2}),
			eq(6, map[string]float64{"x1": 3, "x2": 1}),
		},
	}
}

func solve(t *testing.T, p *simplex.Problem, method simplex.Method) *simplex.Solution {
	t.Helper()
	sol, err := simplex.NewSolver(simplex.DefaultOptions()).SolveWith(context.Background(), p, method)
	require.NoError(t, err)
	requireConsistentSnapshots(t, sol)
	return sol
}

// requireConsistentSnapshots checks the basis invariant on every snapshot and
// that replaying each recorded pivot reproduces the following snapshot.
func requireConsistentSnapshots(t *testing.T, sol *simplex.Solution) {
	t.Helper()
	require.Len(t, sol.Snapshots, sol.Iterations+1)
	require.Nil(t, sol.Snapshots[len(sol.Snapshots)-1].Pivot)

	for i, snap := range sol.Snapshots {
		require.Equal(t, i, snap.Step)
		for _, row := range snap.Rows {
			require.Len(t, row, len(snap.Columns))
		}
		tab, err := tableau.FromSnapshot(snap, 0)
		require.NoError(t, err, "snapshot %d violates the basis invariant", i)
		if i == len(sol.Snapshots)-1 {
			break
		}

		require.NotNil(t, snap.Pivot)
		require.NoError(t, tab.Pivot(snap.Pivot.Row, snap.Pivot.Col))
		replayed := tab.Snapshot(i+1, snap.Phase, nil)
		next := sol.Snapshots[i+1]
		if len(replayed.Columns) != len(next.Columns) || len(replayed.Rows) != len(next.Rows) {
			// Phase 1 ended: the w row and artificial columns were dropped.
			require.Equal(t, simplex.PhaseOne, snap.Phase)
			require.Equal(t, simplex.PhaseTwo, next.Phase)
			continue
		}
		require.Equal(t, next.Basis, replayed.Basis)
		for r := range next.Rows {
			require.InDeltaSlice(t, next.Rows[r], replayed.Rows[r], 1e-9)
		}
	}
}

func TestTwoPhase_ScenarioA(t *testing.T) {
	sol := solve(t, scenarioA(), simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.Equal(t, simplex.MethodTwoPhase, sol.Method)
	require.InDelta(t, 11, *sol.Objective, tol)
	require.InDelta(t, 1, sol.Values["x1"], tol)
	require.InDelta(t, 3, sol.Values["x2"], tol)
	require.Equal(t, 2, sol.Iterations)
	require.Equal(t, 0, sol.Phase1Iterations)

	first := sol.Snapshots[0]
	require.Equal(t, []string{"x1", "x2", "s1", "s2", "s3", tableau.RHSLabel}, first.Columns)
	require.Equal(t, []string{"s1", "s2", "s3", "z"}, first.RowLabels)
	require.Equal(t, []float64{-2, -3, 0, 0, 0, 0}, first.Rows[3])
	require.Equal(t, &tableau.Position{Row: 2, Col: 1}, first.Pivot)
}

func TestTwoPhase_ScenarioB(t *testing.T) {
	sol := solve(t, scenarioB(), simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.InDelta(t, 2.8, *sol.Objective, tol)
	require.InDelta(t, 1.6, sol.Values["x1"], tol)
	require.InDelta(t, 1.2, sol.Values["x2"], tol)
	require.Equal(t, 2, sol.Phase1Iterations)
	require.Equal(t, simplex.PhaseOne, sol.Snapshots[0].Phase)
	require.Equal(t, []string{"a1", "a2", "z", "w"}, sol.Snapshots[0].RowLabels)
	require.Equal(t, []string{"x1", "x2", tableau.RHSLabel}, sol.Snapshots[len(sol.Snapshots)-1].Columns)
}

func TestTwoPhase_ScenarioC_Infeasible(t *testing.T) {
	p := &simplex.Problem{
		Sense:     simplex.Maximize,
		Objective: map[string]float64{"x1": 1, "x2": 1},
		Constraints: []simplex.Constraint{
			le(2, map[string]float64{"x1": 1, "x2": 1}),
			ge(5, map[string]float64{"x1": 1, "x2": 1}),
		},
	}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusInfeasible, sol.Status)
	require.Nil(t, sol.Objective)
	require.Nil(t, sol.Values)
	require.Equal(t, 1, sol.Iterations)
	require.Equal(t, simplex.PhaseOne, sol.Snapshots[len(sol.Snapshots)-1].Phase)
}

func TestTwoPhase_ScenarioD_Unbounded(t *testing.T) {
	p := &simplex.Problem{
		Sense:     simplex.Maximize,
		Objective: map[string]float64{"x1": 1, "x2": 0},
		Constraints: []simplex.Constraint{
			le(1, map[string]float64{"x1": 1, "x2": -1}),
		},
	}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusUnbounded, sol.Status)
	require.Nil(t, sol.Objective)
	require.Nil(t, sol.Values)
	require.Equal(t, 1, sol.Iterations)
}

func TestTwoPhase_NegativeRHSIsFlipped(t *testing.T) {
	// -x1 - x2 <= -2 is x1 + x2 >= 2.
	p := &simplex.Problem{
		Sense:     simplex.Minimize,
		Objective: map[string]float64{"x1": 3, "x2": 1},
		Constraints: []simplex.Constraint{
			le(-2, map[string]float64{"x1": -1, "x2": -1}),
			le(5, map[string]float64{"x1": 1}),
		},
	}
	sf, err := simplex.Normalize(p, simplex.Limits{}, 0)
	require.NoError(t, err)
	require.True(t, sf.HasArtificial)
	require.Equal(t, []string{"x1", "x2", "e1", "s2", "a1"}, sf.Tableau.Labels())
	require.Equal(t, 2.0, sf.Tableau.RHS(0))

	sol := solve(t, p, simplex.MethodTwoPhase)
	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.InDelta(t, 2, *sol.Objective, tol)
	require.InDelta(t, 0, sol.Values["x1"], tol)
	require.InDelta(t, 2, sol.Values["x2"], tol)
}

func TestTwoPhase_DrivesOutZeroArtificial(t *testing.T) {
	p := &simplex.Problem{
		Sense:     simplex.Minimize,
		Objective: map[string]float64{"x1": 1, "x2": 0, "x3": 1},
		Constraints: []simplex.Constraint{
			eq(2, map[string]float64{"x1": 1, "x2": 1}),
			eq(2, map[string]float64{"x1": 1, "x2": 1, "x3": -1}),
		},
	}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.InDelta(t, 0, *sol.Objective, tol)
	require.InDelta(t, 2, sol.Values["x2"], tol)
	require.InDelta(t, 0, sol.Values["x3"], tol)
	require.Equal(t, 2, sol.Phase1Iterations)
	require.Equal(t, 3, sol.Iterations)

	driveOut := sol.Snapshots[1]
	require.Equal(t, simplex.PhaseOne, driveOut.Phase)
	require.Equal(t, "x3", driveOut.Columns[driveOut.Pivot.Col])
	require.Equal(t, "a2", driveOut.RowLabels[driveOut.Pivot.Row])
}

func TestTwoPhase_DropsRedundantRow(t *testing.T) {
	p := &simplex.Problem{
		Sense:     simplex.Minimize,
		Objective: map[string]float64{"x1": 1, "x2": 0},
		Constraints: []simplex.Constraint{
			eq(2, map[string]float64{"x1": 1, "x2": 1}),
			eq(4, map[string]float64{"x1": 2, "x2": 2}),
		},
	}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.InDelta(t, 0, *sol.Objective, tol)
	require.InDelta(t, 0, sol.Values["x1"], tol)
	require.InDelta(t, 2, sol.Values["x2"], tol)

	last := sol.Snapshots[len(sol.Snapshots)-1]
	require.Len(t, last.Rows, 2, "one constraint row plus the objective row")
}

func TestTwoPhase_MaxIterationsExceeded(t *testing.T) {
	opts := simplex.DefaultOptions()
	opts.MaxIterations = 1
	sol, err := simplex.NewSolver(opts).Solve(context.Background(), scenarioA())
	require.NoError(t, err)

	require.Equal(t, simplex.StatusMaxIterationsExceeded, sol.Status)
	require.Nil(t, sol.Objective)
	require.Equal(t, 1, sol.Iterations)
	require.Len(t, sol.Snapshots, 2)
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simplex.NewSolver(simplex.DefaultOptions()).Solve(ctx, scenarioA())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSolve_ExplicitVariableOrder(t *testing.T) {
	p := scenarioA()
	p.Variables = []string{"x2", "x1", "x3"}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, []string{"x2", "x1", "x3", "s1", "s2", "s3", tableau.RHSLabel}, sol.Snapshots[0].Columns)
	require.InDelta(t, 11, *sol.Objective, tol)
	require.Equal(t, 0.0, sol.Values["x3"])
}

func TestSolve_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *simplex.Problem)
		limits simplex.Limits
		kind   simplex.ValidationKind
	}{
		{"no constraints", func(p *simplex.Problem) { p.Constraints = nil }, simplex.Limits{}, simplex.EmptyProblem},
		{"no variables", func(p *simplex.Problem) { p.Objective = nil }, simplex.Limits{}, simplex.EmptyProblem},
		{"unknown in constraint", func(p *simplex.Problem) {
			p.Constraints[0].Coefficients["y"] = 1
		}, simplex.Limits{}, simplex.UnknownVariable},
		{"unknown in objective", func(p *simplex.Problem) {
			p.Variables = []string{"x1", "x2"}
			p.Objective["y"] = 1
		}, simplex.Limits{}, simplex.UnknownVariable},
		{"duplicate", func(p *simplex.Problem) { p.Variables = []string{"x1", "x2", "x1"} }, simplex.Limits{}, simplex.DuplicateVariable},
		{"nan", func(p *simplex.Problem) { p.Constraints[1].RHS = math.NaN() }, simplex.Limits{}, simplex.InvalidNumber},
		{"inf", func(p *simplex.Problem) { p.Objective["x1"] = math.Inf(1) }, simplex.Limits{}, simplex.InvalidNumber},
		{"too many variables", func(p *simplex.Problem) {}, simplex.Limits{MaxVariables: 1}, simplex.ProblemTooLarge},
		{"too many constraints", func(p *simplex.Problem) {}, simplex.Limits{MaxConstraints: 2}, simplex.ProblemTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioA()
			tt.mutate(p)
			opts := simplex.DefaultOptions()
			opts.Limits = tt.limits
			_, err := simplex.NewSolver(opts).Solve(context.Background(), p)
			require.ErrorIs(t, err, simplex.ErrValidation)
			ve, ok := simplex.AsValidation(err)
			require.True(t, ok)
			require.Equal(t, tt.kind, ve.Kind)
		})
	}
}

func TestNaturalVariableOrder(t *testing.T) {
	p := &simplex.Problem{
		Sense:       simplex.Maximize,
		Objective:   map[string]float64{"x10": 1, "x2": 1, "x1": 1, "y": 0},
		Constraints: []simplex.Constraint{le(1, map[string]float64{"x10": 1})},
	}
	sf, err := simplex.Normalize(p, simplex.Limits{}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"x1", "x2", "x10", "y"}, sf.Decision)
}

func TestSyntheticNamesAvoidCollisions(t *testing.T) {
	p := &simplex.Problem{
		Sense:       simplex.Maximize,
		Objective:   map[string]float64{"s1": 1},
		Constraints: []simplex.Constraint{le(1, map[string]float64{"s1": 1})},
	}
	sf, err := simplex.Normalize(p, simplex.Limits{}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s1'"}, sf.Tableau.Labels())
	require.Equal(t, simplex.RoleSlack, sf.Vars[1].Role)
}

func TestParsers(t *testing.T) {
	m, err := simplex.ParseMethod("Dual")
	require.NoError(t, err)
	require.Equal(t, simplex.MethodDual, m)
	_, err = simplex.ParseMethod("big-m")
	require.Error(t, err)

	s, err := simplex.ParseSense("minimize")
	require.NoError(t, err)
	require.Equal(t, simplex.Minimize, s)

	r, err := simplex.ParseRelation("≥")
	require.NoError(t, err)
	require.Equal(t, simplex.GreaterEqual, r)
	for _, bad := range []string{"!=", "<", ">"} {
		_, err = simplex.ParseRelation(bad)
		require.ErrorContains(t, err, "invalid relation", "relation %q", bad)
	}

	st, ok := simplex.ParseStatus("maxiterationsexceeded")
	require.True(t, ok)
	require.Equal(t, simplex.StatusMaxIterationsExceeded, st)
}

func TestNumericInstabilityIsFatal(t *testing.T) {
	tab, err := tableau.New([]string{"x", "s"}, [][]float64{{0, 1, 1}, {-1, 0, 0}}, []int{1}, []string{"z"}, 0)
	require.NoError(t, err)
	err = tab.Pivot(0, 0)
	require.True(t, errors.Is(err, simplex.ErrNumericInstability))
}

func TestSolve_OverflowIsNumericInstability(t *testing.T) {
	p := &simplex.Problem{
		Sense:     simplex.Maximize,
		Objective: map[string]float64{"x1": 1, "x2": 1},
		Constraints: []simplex.Constraint{
			le(1e308, map[string]float64{"x1": 1e-8, "x2": 1}),
		},
	}
	sol, err := simplex.NewSolver(simplex.DefaultOptions()).Solve(context.Background(), p)
	require.ErrorIs(t, err, simplex.ErrNumericInstability)
	require.Nil(t, sol)
}

func TestTwoPhase_EnteringTieTakesLowestColumn(t *testing.T) {
	p := &simplex.Problem{
		Sense:     simplex.Maximize,
		Objective: map[string]float64{"x1": 1, "x2": 1},
		Constraints: []simplex.Constraint{
			le(2, map[string]float64{"x1": 1}),
			le(3, map[string]float64{"x2": 1}),
		},
	}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.InDelta(t, 5, *sol.Objective, tol)
	require.Equal(t, &tableau.Position{Row: 0, Col: 0}, sol.Snapshots[0].Pivot)
	require.Equal(t, &tableau.Position{Row: 1, Col: 1}, sol.Snapshots[1].Pivot)
}

func TestTwoPhase_RatioTieTakesLowestBasicVariable(t *testing.T) {
	// After x1 replaces s2 in row 1, x2 ties rows 0 and 1 at ratio 8. Row 0
	// holds s1 and row 1 holds x1, so row 1 must leave.
	p := &simplex.Problem{
		Sense:     simplex.Maximize,
		Objective: map[string]float64{"x1": 2, "x2": 1},
		Constraints: []simplex.Constraint{
			le(4, map[string]float64{"x1": 1, "x2": 0.5}),
			le(2, map[string]float64{"x1": 1, "x2": 0.25}),
		},
	}
	sol := solve(t, p, simplex.MethodTwoPhase)

	require.Equal(t, simplex.StatusOptimal, sol.Status)
	require.Equal(t, 2, sol.Iterations)
	require.Equal(t, &tableau.Position{Row: 1, Col: 0}, sol.Snapshots[0].Pivot)
	require.Equal(t, []int{2, 0}, sol.Snapshots[1].Basis)
	require.Equal(t, &tableau.Position{Row: 1, Col: 1}, sol.Snapshots[1].Pivot)
	require.InDelta(t, 8, *sol.Objective, tol)
	require.InDelta(t, 0, sol.Values["x1"], tol)
	require.InDelta(t, 8, sol.Values["x2"], tol)
}
