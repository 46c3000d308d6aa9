// Package simplex solves small linear programs with a dense tableau.
//
// Two drivers share one pivot primitive: the two-phase primal method, which
// accepts any mix of <=, >= and = rows, and the dual simplex method, which
// starts from a dual-feasible tableau. Every pivot is recorded as a snapshot
// so callers can replay the run step by step.
package simplex

import (
	"fmt"
	"strings"
)

// Sense is the optimization direction of the objective.
type Sense int

const (
	Maximize Sense = iota
	Minimize
)

func (s Sense) String() string {
	if s == Minimize {
		return "min"
	}
	return "max"
}

// ParseSense accepts "max"/"maximize" and "min"/"minimize".
func ParseSense(s string) (Sense, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max", "maximize", "maximise":
		return Maximize, nil
	case "min", "minimize", "minimise":
		return Minimize, nil
	}
	return Maximize, fmt.Errorf("invalid objective type %q (must be max or min)", s)
}

// Relation is the comparison of a constraint row.
type Relation int

const (
	LessEqual Relation = iota
	GreaterEqual
	Equal
)

func (r Relation) String() string {
	switch r {
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "<="
	}
}

// flip returns the relation obtained by multiplying the row by -1.
func (r Relation) flip() Relation {
	switch r {
	case LessEqual:
		return GreaterEqual
	case GreaterEqual:
		return LessEqual
	default:
		return Equal
	}
}

// ParseRelation accepts ASCII and unicode spellings.
func ParseRelation(s string) (Relation, error) {
	switch strings.TrimSpace(s) {
	case "<=", "≤", "=<":
		return LessEqual, nil
	case ">=", "≥", "=>":
		return GreaterEqual, nil
	case "=", "==":
		return Equal, nil
	}
	return LessEqual, fmt.Errorf("invalid relation %q (must be <=, >= or =)", s)
}

// Role tags how a tableau column came to exist.
type Role int

const (
	RoleDecision Role = iota
	RoleSlack
	RoleSurplus
	RoleArtificial
)

func (r Role) String() string {
	switch r {
	case RoleSlack:
		return "slack"
	case RoleSurplus:
		return "surplus"
	case RoleArtificial:
		return "artificial"
	default:
		return "decision"
	}
}

// Variable is one tableau column.
type Variable struct {
	Name string
	Role Role
}

// Constraint is one row: sum(Coefficients[v] * v) Relation RHS.
type Constraint struct {
	Coefficients map[string]float64
	Relation     Relation
	RHS          float64
}

// Problem is a linear program over non-negative decision variables.
//
// Variables lists the declared decision variables in column order. When it is
// empty the keys of Objective are used, sorted so that x2 comes before x10.
// Objective coefficients missing from the map are zero.
type Problem struct {
	Sense       Sense
	Variables   []string
	Objective   map[string]float64
	Constraints []Constraint
}

// Method selects the driver.
type Method int

const (
	MethodTwoPhase Method = iota
	MethodDual
)

func (m Method) String() string {
	if m == MethodDual {
		return "dual"
	}
	return "two-phase"
}

// ParseMethod accepts "two-phase" and "dual" plus a few common spellings.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "two-phase", "twophase", "two_phase", "primal", "simplex":
		return MethodTwoPhase, nil
	case "dual", "dual-simplex", "dual_simplex":
		return MethodDual, nil
	}
	return MethodTwoPhase, fmt.Errorf("invalid method %q (must be two-phase or dual)", s)
}

// Status is the algorithmic outcome of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusMaxIterationsExceeded
)

func (s Status) String() string {
	switch s {
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusMaxIterationsExceeded:
		return "MaxIterationsExceeded"
	default:
		return "Optimal"
	}
}

// ParseStatus is the inverse of Status.String, case-insensitive.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusOptimal, StatusInfeasible, StatusUnbounded, StatusMaxIterationsExceeded} {
		if strings.EqualFold(st.String(), s) {
			return st, true
		}
	}
	return StatusOptimal, false
}
