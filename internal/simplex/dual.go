package simplex

import "math"

// dual runs the dual simplex method on a dual-feasible tableau. It stops with
// Optimal once every rhs is non-negative, or Infeasible when the leaving row
// has no negative entry to pivot on.
func (r *runner) dual() (Status, error) {
	for {
		row := r.dualLeavingRow()
		if row < 0 {
			return StatusOptimal, nil
		}
		col := r.dualEnteringColumn(row)
		if col < 0 {
			r.log.Debug("primal infeasible row", "row", row, "basic", r.tab.Label(r.tab.BasicVar(row)))
			return StatusInfeasible, nil
		}
		if err := r.pivot(PhaseDual, row, col); err != nil {
			return outcome(err)
		}
	}
}

// dualLeavingRow picks the most negative rhs, lowest basis index on ties.
func (r *runner) dualLeavingRow() int {
	row, best := -1, 0.0
	for i := 0; i < r.tab.ConstraintRows(); i++ {
		rhs := r.tab.RHS(i)
		if rhs >= -r.eps {
			continue
		}
		switch {
		case row < 0, rhs < best-r.eps:
			row, best = i, rhs
		case math.Abs(rhs-best) <= r.eps && r.tab.BasicVar(i) < r.tab.BasicVar(row):
			row, best = i, math.Min(rhs, best)
		}
	}
	return row
}

// dualEnteringColumn picks, among negative entries of row, the column with
// the smallest |reduced cost / entry|, lowest column on ties.
func (r *runner) dualEnteringColumn(row int) int {
	col, best := -1, math.Inf(1)
	for j := 0; j < r.tab.Cols(); j++ {
		a := r.tab.At(row, j)
		if a >= -r.eps {
			continue
		}
		ratio := math.Abs(r.tab.ReducedCost(j) / a)
		if col < 0 || ratio < best-r.eps {
			col, best = j, ratio
		}
	}
	return col
}
