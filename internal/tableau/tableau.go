// Package tableau holds the dense simplex tableau and its pivot primitive.
//
// A Tableau has one row per constraint followed by one or more objective rows.
// The last row is always the active objective; during Phase 1 of the two-phase
// method the real objective sits directly above the auxiliary one so that every
// pivot keeps it canonical. Values change only through Pivot.
package tableau

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon is the tolerance below which a pivot element is rejected.
const DefaultEpsilon = 1e-9

// RHSLabel is the column label of the right-hand side.
const RHSLabel = "RHS"

var (
	ErrDimensionMismatch  = errors.New("tableau: dimension mismatch")
	ErrBasisInvariant     = errors.New("tableau: basis columns do not form an identity")
	ErrOutOfRange         = errors.New("tableau: index out of range")
	ErrBasicColumn        = errors.New("tableau: cannot drop a basic column")
	ErrNumericInstability = errors.New("tableau: numeric instability")
)

// NumericInstabilityError reports a pivot element too close to zero, or a
// pivot whose elimination overflowed to a non-finite value.
type NumericInstabilityError struct {
	Row     int
	Col     int
	Value   float64
	Epsilon float64
	// Overflow is set when the pivot itself was usable but left an Inf or
	// NaN somewhere in the tableau.
	Overflow bool
}

func (e *NumericInstabilityError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("tableau: pivot %g at (%d, %d) produced a non-finite value", e.Value, e.Row, e.Col)
	}
	return fmt.Sprintf("tableau: pivot element %g at (%d, %d) is below epsilon %g", e.Value, e.Row, e.Col, e.Epsilon)
}

// Is lets errors.Is match ErrNumericInstability.
func (e *NumericInstabilityError) Is(target error) bool {
	return target == ErrNumericInstability
}

// Tableau is a dense simplex tableau with its basis.
type Tableau struct {
	data      *mat.Dense
	labels    []string
	objLabels []string
	basis     []int
	m         int
	eps       float64
}

// New builds a tableau from constraint rows followed by objective rows. Every
// row holds one value per label plus the right-hand side. objLabels names the
// objective rows (top to bottom) and basis lists the basic column of each
// constraint row.
func New(labels []string, rows [][]float64, basis []int, objLabels []string, eps float64) (*Tableau, error) {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	n := len(labels)
	m := len(basis)
	if n == 0 || len(objLabels) == 0 {
		return nil, fmt.Errorf("%w: need at least one column and one objective row", ErrDimensionMismatch)
	}
	if len(rows) != m+len(objLabels) {
		return nil, fmt.Errorf("%w: %d rows for %d constraints and %d objective rows", ErrDimensionMismatch, len(rows), m, len(objLabels))
	}

	data := make([]float64, 0, len(rows)*(n+1))
	for i, row := range rows {
		if len(row) != n+1 {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), n+1)
		}
		if !finite(row) {
			return nil, fmt.Errorf("%w: row %d holds a non-finite value", ErrNumericInstability, i)
		}
		data = append(data, row...)
	}
	for i, col := range basis {
		if col < 0 || col >= n {
			return nil, fmt.Errorf("%w: basis[%d] = %d", ErrOutOfRange, i, col)
		}
	}

	t := &Tableau{
		data:      mat.NewDense(len(rows), n+1, data),
		labels:    append([]string(nil), labels...),
		objLabels: append([]string(nil), objLabels...),
		basis:     append([]int(nil), basis...),
		m:         m,
		eps:       eps,
	}
	if err := t.CheckBasis(); err != nil {
		return nil, err
	}
	return t, nil
}

// ConstraintRows returns the number of constraint rows.
func (t *Tableau) ConstraintRows() int { return t.m }

// Cols returns the number of variable columns (the rhs column excluded).
func (t *Tableau) Cols() int { return len(t.labels) }

// ObjectiveRow returns the index of the active objective row.
func (t *Tableau) ObjectiveRow() int {
	r, _ := t.data.Dims()
	return r - 1
}

// ObjectiveRows returns the number of objective rows.
func (t *Tableau) ObjectiveRows() int { return len(t.objLabels) }

// Epsilon returns the tolerance the tableau was built with.
func (t *Tableau) Epsilon() float64 { return t.eps }

// At returns the value at row r and column c.
func (t *Tableau) At(r, c int) float64 { return t.data.At(r, c) }

// RHS returns the right-hand side of row r.
func (t *Tableau) RHS(r int) float64 { return t.data.At(r, len(t.labels)) }

// ReducedCost returns the active objective row entry of column c.
func (t *Tableau) ReducedCost(c int) float64 { return t.data.At(t.ObjectiveRow(), c) }

// ObjectiveRHS returns the right-hand side of the active objective row.
func (t *Tableau) ObjectiveRHS() float64 { return t.RHS(t.ObjectiveRow()) }

// BasicVar returns the basic column of constraint row r.
func (t *Tableau) BasicVar(r int) int { return t.basis[r] }

// Basis returns a copy of the basis.
func (t *Tableau) Basis() []int { return append([]int(nil), t.basis...) }

// Label returns the name of column c.
func (t *Tableau) Label(c int) string { return t.labels[c] }

// Labels returns a copy of the column labels.
func (t *Tableau) Labels() []string { return append([]string(nil), t.labels...) }

// Pivot makes column col basic in row row.
func (t *Tableau) Pivot(row, col int) error {
	if row < 0 || row >= t.m || col < 0 || col >= len(t.labels) {
		return fmt.Errorf("%w: pivot (%d, %d)", ErrOutOfRange, row, col)
	}
	p := t.data.At(row, col)
	if math.Abs(p) < t.eps || math.IsNaN(p) {
		return &NumericInstabilityError{Row: row, Col: col, Value: p, Epsilon: t.eps}
	}

	pr := t.data.RawRowView(row)
	floats.Scale(1/p, pr)
	pr[col] = 1

	rows, _ := t.data.Dims()
	for i := 0; i < rows; i++ {
		if i == row {
			continue
		}
		ri := t.data.RawRowView(i)
		f := ri[col]
		if f == 0 {
			continue
		}
		floats.AddScaled(ri, -f, pr)
		ri[col] = 0
	}
	t.basis[row] = col

	for i := 0; i < rows; i++ {
		if !finite(t.data.RawRowView(i)) {
			return &NumericInstabilityError{Row: row, Col: col, Value: p, Epsilon: t.eps, Overflow: true}
		}
	}
	return nil
}

func finite(row []float64) bool {
	if floats.HasNaN(row) {
		return false
	}
	for _, v := range row {
		if math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CheckBasis verifies that every basis column is an identity column.
func (t *Tableau) CheckBasis() error {
	rows, _ := t.data.Dims()
	seen := make(map[int]bool, len(t.basis))
	for r, col := range t.basis {
		if seen[col] {
			return fmt.Errorf("%w: column %s is basic twice", ErrBasisInvariant, t.labels[col])
		}
		seen[col] = true
		for i := 0; i < rows; i++ {
			want := 0.0
			if i == r {
				want = 1
			}
			if math.Abs(t.data.At(i, col)-want) > t.tolerance() {
				return fmt.Errorf("%w: column %s reads %g in row %d", ErrBasisInvariant, t.labels[col], t.data.At(i, col), i)
			}
		}
	}
	return nil
}

// tolerance for invariant checks; accumulated rounding is larger than the
// pivot threshold.
func (t *Tableau) tolerance() float64 {
	return math.Max(t.eps, 1e-7)
}

// DropObjectiveRow removes the active objective row, exposing the one above.
func (t *Tableau) DropObjectiveRow() error {
	if len(t.objLabels) < 2 {
		return fmt.Errorf("%w: only one objective row left", ErrDimensionMismatch)
	}
	t.data = t.withoutRow(t.ObjectiveRow())
	t.objLabels = t.objLabels[:len(t.objLabels)-1]
	return nil
}

// DropRow removes constraint row r together with its basis entry.
func (t *Tableau) DropRow(r int) error {
	if r < 0 || r >= t.m {
		return fmt.Errorf("%w: row %d", ErrOutOfRange, r)
	}
	t.data = t.withoutRow(r)
	t.basis = append(t.basis[:r:r], t.basis[r+1:]...)
	t.m--
	return nil
}

func (t *Tableau) withoutRow(r int) *mat.Dense {
	rows, cols := t.data.Dims()
	out := mat.NewDense(rows-1, cols, nil)
	k := 0
	for i := 0; i < rows; i++ {
		if i == r {
			continue
		}
		out.SetRow(k, t.data.RawRowView(i))
		k++
	}
	return out
}

// DropColumns removes the given non-basic columns. Remaining columns keep
// their relative order and the basis is renumbered.
func (t *Tableau) DropColumns(cols ...int) error {
	if len(cols) == 0 {
		return nil
	}
	drop := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c < 0 || c >= len(t.labels) {
			return fmt.Errorf("%w: column %d", ErrOutOfRange, c)
		}
		drop[c] = true
	}
	for _, c := range t.basis {
		if drop[c] {
			return fmt.Errorf("%w: %s", ErrBasicColumn, t.labels[c])
		}
	}

	remap := make([]int, len(t.labels))
	keep := make([]int, 0, len(t.labels)+1)
	labels := make([]string, 0, len(t.labels))
	for c, l := range t.labels {
		if drop[c] {
			remap[c] = -1
			continue
		}
		remap[c] = len(keep)
		keep = append(keep, c)
		labels = append(labels, l)
	}
	keep = append(keep, len(t.labels))

	rows, _ := t.data.Dims()
	out := mat.NewDense(rows, len(keep), nil)
	for i := 0; i < rows; i++ {
		src := t.data.RawRowView(i)
		dst := out.RawRowView(i)
		for j, c := range keep {
			dst[j] = src[c]
		}
	}
	for r, c := range t.basis {
		t.basis[r] = remap[c]
	}
	t.data = out
	t.labels = labels
	return nil
}

// String renders the tableau with row and column labels.
func (t *Tableau) String() string {
	return format(t.labels, t.rowLabels(), t.data)
}

// format prints data under a header of column labels, one row label per line.
func format(labels, rowLabels []string, data mat.Matrix) string {
	header := "      "
	for _, l := range labels {
		header += fmt.Sprintf("%-10s", l)
	}
	header += RHSLabel
	out := header + "\n"
	f := mat.Formatted(data, mat.Prefix(""), mat.Squeeze())
	lines := strings.Split(strings.TrimRight(fmt.Sprintf("%.4v", f), "\n"), "\n")
	for i, line := range lines {
		label := ""
		if i < len(rowLabels) {
			label = rowLabels[i]
		}
		out += fmt.Sprintf("%-6s%s\n", label, line)
	}
	return out
}

func (t *Tableau) rowLabels() []string {
	out := make([]string, 0, t.m+len(t.objLabels))
	for _, c := range t.basis {
		out = append(out, t.labels[c])
	}
	return append(out, t.objLabels...)
}
