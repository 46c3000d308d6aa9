package simplex

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/simplexviz/simplex-core/internal/tableau"
)

const (
	objectiveLabel = "z"
	phase1Label    = "w"
)

// Limits bounds the size of accepted problems. Zero means unlimited.
type Limits struct {
	MaxVariables   int
	MaxConstraints int
}

// StandardForm is a normalized problem ready for a driver.
type StandardForm struct {
	Sense         Sense
	Decision      []string
	Vars          []Variable
	Tableau       *tableau.Tableau
	Artificial    []int
	HasArtificial bool
}

// Normalize converts p into the two-phase starting tableau. Rows with a
// negative rhs are negated first, so every rhs is non-negative. When
// artificials are needed a canonical Phase 1 row is appended below the
// objective row.
func Normalize(p *Problem, limits Limits, eps float64) (*StandardForm, error) {
	decision, err := validate(p, limits)
	if err != nil {
		return nil, err
	}
	n := len(decision)
	m := len(p.Constraints)
	index := columnIndex(decision)
	names := newNamer(decision)

	type rowSpec struct {
		coefs []float64
		rel   Relation
		rhs   float64
	}
	specs := make([]rowSpec, m)
	slackCount, artCount := 0, 0
	for i, c := range p.Constraints {
		coefs := make([]float64, n)
		for name, v := range c.Coefficients {
			coefs[index[name]] = v
		}
		rel, rhs := c.Relation, c.RHS
		if rhs < 0 {
			for j := range coefs {
				coefs[j] = -coefs[j]
			}
			rhs = -rhs
			rel = rel.flip()
		}
		specs[i] = rowSpec{coefs: coefs, rel: rel, rhs: rhs}
		if rel != Equal {
			slackCount++
		}
		if rel != LessEqual {
			artCount++
		}
	}

	vars := make([]Variable, 0, n+slackCount+artCount)
	for _, name := range decision {
		vars = append(vars, Variable{Name: name, Role: RoleDecision})
	}
	slackCol := make([]int, m)
	artCol := make([]int, m)
	for i, s := range specs {
		slackCol[i], artCol[i] = -1, -1
		switch s.rel {
		case LessEqual:
			slackCol[i] = len(vars)
			vars = append(vars, Variable{Name: names.next("s", i+1), Role: RoleSlack})
		case GreaterEqual:
			slackCol[i] = len(vars)
			vars = append(vars, Variable{Name: names.next("e", i+1), Role: RoleSurplus})
		}
	}
	var artificial []int
	for i, s := range specs {
		if s.rel == LessEqual {
			continue
		}
		artCol[i] = len(vars)
		artificial = append(artificial, len(vars))
		vars = append(vars, Variable{Name: names.next("a", i+1), Role: RoleArtificial})
	}

	width := len(vars) + 1
	rows := make([][]float64, 0, m+2)
	basis := make([]int, m)
	for i, s := range specs {
		row := make([]float64, width)
		copy(row, s.coefs)
		switch s.rel {
		case LessEqual:
			row[slackCol[i]] = 1
			basis[i] = slackCol[i]
		case GreaterEqual:
			row[slackCol[i]] = -1
			row[artCol[i]] = 1
			basis[i] = artCol[i]
		case Equal:
			row[artCol[i]] = 1
			basis[i] = artCol[i]
		}
		row[width-1] = s.rhs
		rows = append(rows, row)
	}
	rows = append(rows, objectiveRow(p, decision, width))

	objLabels := []string{objectiveLabel}
	if len(artificial) > 0 {
		// w = sum of artificials, expressed in the non-basic columns.
		w := make([]float64, width)
		for i := range specs {
			if artCol[i] < 0 {
				continue
			}
			for j := 0; j < width; j++ {
				w[j] -= rows[i][j]
			}
		}
		for _, c := range artificial {
			w[c] = 0
		}
		rows = append(rows, w)
		objLabels = append(objLabels, phase1Label)
	}

	tab, err := tableau.New(labelsOf(vars), rows, basis, objLabels, eps)
	if err != nil {
		return nil, fmt.Errorf("build initial tableau: %w", err)
	}
	return &StandardForm{
		Sense:         p.Sense,
		Decision:      decision,
		Vars:          vars,
		Tableau:       tab,
		Artificial:    artificial,
		HasArtificial: len(artificial) > 0,
	}, nil
}

// NormalizeDual converts p into a dual simplex starting tableau: every row is
// rewritten as <= (>= rows negated, = rows split in two) with a slack in the
// basis, so the rhs may be negative. The objective row must already be
// dual-feasible, otherwise a NotDualFeasible validation error is returned.
func NormalizeDual(p *Problem, limits Limits, eps float64) (*StandardForm, error) {
	decision, err := validate(p, limits)
	if err != nil {
		return nil, err
	}
	if eps <= 0 {
		eps = tableau.DefaultEpsilon
	}
	n := len(decision)
	index := columnIndex(decision)

	var le [][]float64
	for _, c := range p.Constraints {
		row := make([]float64, n+1)
		for name, v := range c.Coefficients {
			row[index[name]] = v
		}
		row[n] = c.RHS
		switch c.Relation {
		case LessEqual:
			le = append(le, row)
		case GreaterEqual:
			le = append(le, negated(row))
		case Equal:
			le = append(le, row, negated(row))
		}
	}
	m := len(le)
	names := newNamer(decision)
	vars := make([]Variable, 0, n+m)
	for _, name := range decision {
		vars = append(vars, Variable{Name: name, Role: RoleDecision})
	}
	for i := 0; i < m; i++ {
		vars = append(vars, Variable{Name: names.next("s", i+1), Role: RoleSlack})
	}

	width := len(vars) + 1
	rows := make([][]float64, 0, m+1)
	basis := make([]int, m)
	for i, src := range le {
		row := make([]float64, width)
		copy(row, src[:n])
		row[n+i] = 1
		row[width-1] = src[n]
		rows = append(rows, row)
		basis[i] = n + i
	}
	obj := objectiveRow(p, decision, width)
	for j, v := range obj[:n] {
		if v < -eps {
			return nil, invalid(NotDualFeasible, "reduced cost of %s is %g; dual simplex needs every cost to be non-negative after converting to minimization", decision[j], v)
		}
	}
	rows = append(rows, obj)

	tab, err := tableau.New(labelsOf(vars), rows, basis, []string{objectiveLabel}, eps)
	if err != nil {
		return nil, fmt.Errorf("build dual tableau: %w", err)
	}
	return &StandardForm{
		Sense:    p.Sense,
		Decision: decision,
		Vars:     vars,
		Tableau:  tab,
	}, nil
}

// objectiveRow returns the cost row for minimization: maximize problems are
// negated here and nowhere else.
func objectiveRow(p *Problem, decision []string, width int) []float64 {
	row := make([]float64, width)
	for j, name := range decision {
		c := p.Objective[name]
		if p.Sense == Maximize {
			c = -c
		}
		row[j] = c
	}
	return row
}

func negated(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = -v
	}
	return out
}

func labelsOf(vars []Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

func columnIndex(decision []string) map[string]int {
	index := make(map[string]int, len(decision))
	for i, name := range decision {
		index[name] = i
	}
	return index
}

// validate checks p and returns the ordered decision variables.
func validate(p *Problem, limits Limits) ([]string, error) {
	if p == nil {
		return nil, invalid(EmptyProblem, "problem is nil")
	}
	decision := slices.Clone(p.Variables)
	if len(decision) == 0 {
		decision = make([]string, 0, len(p.Objective))
		for name := range p.Objective {
			decision = append(decision, name)
		}
		slices.SortFunc(decision, compareNatural)
	}
	if len(decision) == 0 {
		return nil, invalid(EmptyProblem, "at least one decision variable is required")
	}
	if len(p.Constraints) == 0 {
		return nil, invalid(EmptyProblem, "at least one constraint is required")
	}
	if limits.MaxVariables > 0 && len(decision) > limits.MaxVariables {
		return nil, invalid(ProblemTooLarge, "%d variables exceeds the limit of %d", len(decision), limits.MaxVariables)
	}
	if limits.MaxConstraints > 0 && len(p.Constraints) > limits.MaxConstraints {
		return nil, invalid(ProblemTooLarge, "%d constraints exceeds the limit of %d", len(p.Constraints), limits.MaxConstraints)
	}

	declared := make(map[string]bool, len(decision))
	for _, name := range decision {
		if strings.TrimSpace(name) == "" {
			return nil, invalid(UnknownVariable, "variable name cannot be empty")
		}
		if declared[name] {
			return nil, invalid(DuplicateVariable, "variable %s is declared twice", name)
		}
		declared[name] = true
	}
	for name, v := range p.Objective {
		if !declared[name] {
			return nil, invalid(UnknownVariable, "objective references undeclared variable %s", name)
		}
		if !finite(v) {
			return nil, invalid(InvalidNumber, "objective coefficient of %s is %g", name, v)
		}
	}
	for i, c := range p.Constraints {
		for name, v := range c.Coefficients {
			if !declared[name] {
				return nil, invalid(UnknownVariable, "constraint %d references undeclared variable %s", i+1, name)
			}
			if !finite(v) {
				return nil, invalid(InvalidNumber, "constraint %d coefficient of %s is %g", i+1, name, v)
			}
		}
		if !finite(c.RHS) {
			return nil, invalid(InvalidNumber, "constraint %d rhs is %g", i+1, c.RHS)
		}
	}
	return decision, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// namer hands out synthetic column names that do not collide with user names.
type namer struct {
	used map[string]bool
}

func newNamer(decision []string) *namer {
	used := make(map[string]bool, len(decision))
	for _, name := range decision {
		used[name] = true
	}
	return &namer{used: used}
}

func (n *namer) next(prefix string, row int) string {
	name := prefix + strconv.Itoa(row)
	for n.used[name] {
		name += "'"
	}
	n.used[name] = true
	return name
}

// compareNatural orders names so that embedded numbers compare by value.
func compareNatural(a, b string) int {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, resta := leadingDigits(a)
			nb, restb := leadingDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) - len(tb)
			}
			if c := strings.Compare(ta, tb); c != 0 {
				return c
			}
			a, b = resta, restb
			continue
		}
		if ca != cb {
			return int(ca) - int(cb)
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
