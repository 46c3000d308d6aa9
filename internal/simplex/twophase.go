package simplex

import (
	"fmt"
	"math"
)

// twoPhase runs Phase 1 when artificials exist and then Phase 2. It returns
// the terminal status and the phase it ended in.
func (r *runner) twoPhase(sf *StandardForm) (Status, string, error) {
	if sf.HasArtificial {
		status, err := r.primal(PhaseOne)
		if err != nil || status == StatusMaxIterationsExceeded {
			return status, PhaseOne, err
		}
		if status == StatusUnbounded {
			// The sum of artificials is bounded below by zero.
			return status, PhaseOne, fmt.Errorf("phase 1 reported unbounded: %w", ErrNumericInstability)
		}
		if infeasibility := -r.tab.ObjectiveRHS(); infeasibility > r.eps {
			r.log.Debug("phase 1 optimum above zero", "sum_artificial", infeasibility)
			return StatusInfeasible, PhaseOne, nil
		}

		status, err = r.leavePhaseOne(sf)
		if err != nil || status == StatusMaxIterationsExceeded {
			return status, PhaseOne, err
		}
	}

	status, err := r.primal(PhaseTwo)
	return status, PhaseTwo, err
}

// leavePhaseOne drives zero-level artificials out of the basis, drops rows
// that turn out to be redundant, then removes the Phase 1 row and the
// artificial columns.
func (r *runner) leavePhaseOne(sf *StandardForm) (Status, error) {
	isArtificial := make(map[int]bool, len(sf.Artificial))
	for _, c := range sf.Artificial {
		isArtificial[c] = true
	}

	for row := r.tab.ConstraintRows() - 1; row >= 0; row-- {
		if !isArtificial[r.tab.BasicVar(row)] {
			continue
		}
		col := -1
		for j := 0; j < r.tab.Cols(); j++ {
			if !isArtificial[j] && math.Abs(r.tab.At(row, j)) > r.eps {
				col = j
				break
			}
		}
		if col < 0 {
			r.log.Debug("dropping redundant constraint", "row", row, "artificial", r.tab.Label(r.tab.BasicVar(row)))
			if err := r.tab.DropRow(row); err != nil {
				return StatusOptimal, err
			}
			continue
		}
		if err := r.pivot(PhaseOne, row, col); err != nil {
			return outcome(err)
		}
	}

	if err := r.tab.DropObjectiveRow(); err != nil {
		return StatusOptimal, err
	}
	if err := r.tab.DropColumns(sf.Artificial...); err != nil {
		return StatusOptimal, err
	}
	return StatusOptimal, nil
}

// primal pivots on the active objective row until no reduced cost is
// negative (Optimal) or an entering column has no positive entry (Unbounded).
func (r *runner) primal(phase string) (Status, error) {
	for {
		col := r.enteringColumn()
		if col < 0 {
			return StatusOptimal, nil
		}
		row := r.leavingRow(col)
		if row < 0 {
			r.log.Debug("unbounded direction", "phase", phase, "column", r.tab.Label(col))
			return StatusUnbounded, nil
		}
		if err := r.pivot(phase, row, col); err != nil {
			return outcome(err)
		}
	}
}

// enteringColumn applies Dantzig's rule: the most negative reduced cost,
// lowest column on ties. Returns -1 when none is below -eps.
func (r *runner) enteringColumn() int {
	col, best := -1, -r.eps
	for j := 0; j < r.tab.Cols(); j++ {
		rc := r.tab.ReducedCost(j)
		if rc < -r.eps && (col < 0 || rc < best-r.eps) {
			col, best = j, rc
		}
	}
	return col
}

// leavingRow applies the minimum-ratio test on column col. Ties go to the
// row whose basic variable has the lowest index. Returns -1 when no entry is
// positive.
func (r *runner) leavingRow(col int) int {
	row, best := -1, math.Inf(1)
	for i := 0; i < r.tab.ConstraintRows(); i++ {
		a := r.tab.At(i, col)
		if a <= r.eps {
			continue
		}
		rhs := r.tab.RHS(i)
		if rhs < 0 && rhs > -r.eps {
			rhs = 0
		}
		ratio := rhs / a
		switch {
		case row < 0, ratio < best-r.eps:
			row, best = i, ratio
		case math.Abs(ratio-best) <= r.eps && r.tab.BasicVar(i) < r.tab.BasicVar(row):
			row, best = i, math.Min(ratio, best)
		}
	}
	return row
}
