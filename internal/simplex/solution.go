package simplex

import (
	"math"

	"github.com/simplexviz/simplex-core/internal/tableau"
)

// Solution is the outcome of one solve. Objective and Values are set only
// when Status is StatusOptimal.
type Solution struct {
	Status           Status
	Method           Method
	Objective        *float64
	Values           map[string]float64
	Iterations       int
	Phase1Iterations int
	// Snapshots holds one pre-pivot copy per pivot followed by the terminal
	// tableau.
	Snapshots []tableau.Snapshot
}

// Optimal reports whether the solve reached an optimum.
func (s *Solution) Optimal() bool { return s.Status == StatusOptimal }

// extract reads the terminal tableau. The objective row holds the negated
// value of the internal minimization; maximize problems flip it back.
func extract(sf *StandardForm, tab *tableau.Tableau, status Status, eps float64) *Solution {
	sol := &Solution{Status: status}
	if status != StatusOptimal {
		return sol
	}

	values := make(map[string]float64, len(sf.Decision))
	for _, name := range sf.Decision {
		values[name] = 0
	}
	for row := 0; row < tab.ConstraintRows(); row++ {
		col := tab.BasicVar(row)
		if col < len(sf.Decision) {
			values[sf.Decision[col]] = clean(tab.RHS(row), eps)
		}
	}

	internal := -tab.ObjectiveRHS()
	if sf.Sense == Maximize {
		internal = -internal
	}
	obj := clean(internal, eps)
	sol.Objective = &obj
	sol.Values = values
	return sol
}

// clean snaps values within eps of zero to zero, dropping negative zeros.
func clean(v, eps float64) float64 {
	if math.Abs(v) < eps {
		return 0
	}
	return v
}
