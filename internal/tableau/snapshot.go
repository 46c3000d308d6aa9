package tableau

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Position is a (row, column) cell of a tableau.
type Position struct {
	Row int `json:"row"`
	Col int `json:"column"`
}

// Snapshot is an immutable copy of a tableau at one step. Pivot is the pivot
// about to be applied to this state, or nil for the terminal snapshot.
type Snapshot struct {
	Step       int         `json:"step"`
	Phase      string      `json:"phase"`
	Columns    []string    `json:"columns"`
	RowLabels  []string    `json:"basis"`
	Rows       [][]float64 `json:"rows"`
	Pivot      *Position   `json:"pivot"`
	Basis      []int       `json:"-"`
	Constraint int         `json:"-"`
}

// Snapshot copies the current state. Columns end with RHSLabel so every row
// has exactly len(Columns) values.
func (t *Tableau) Snapshot(step int, phase string, pivot *Position) Snapshot {
	rows, cols := t.data.Dims()
	out := Snapshot{
		Step:       step,
		Phase:      phase,
		Columns:    append(t.Labels(), RHSLabel),
		RowLabels:  t.rowLabels(),
		Rows:       make([][]float64, rows),
		Basis:      t.Basis(),
		Constraint: t.m,
	}
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		copy(row, t.data.RawRowView(i))
		out.Rows[i] = row
	}
	if pivot != nil {
		p := *pivot
		out.Pivot = &p
	}
	return out
}

// FromSnapshot rebuilds a live tableau from a snapshot.
func FromSnapshot(s Snapshot, eps float64) (*Tableau, error) {
	if len(s.Columns) < 2 || s.Columns[len(s.Columns)-1] != RHSLabel {
		return nil, fmt.Errorf("%w: snapshot columns must end with %s", ErrDimensionMismatch, RHSLabel)
	}
	if s.Constraint != len(s.Basis) || len(s.RowLabels) != len(s.Rows) {
		return nil, fmt.Errorf("%w: snapshot rows and basis disagree", ErrDimensionMismatch)
	}
	return New(s.Columns[:len(s.Columns)-1], s.Rows, s.Basis, s.RowLabels[s.Constraint:], eps)
}

// String renders the snapshot like Tableau.String. Snapshots decoded from
// JSON carry no basis indices, so this is the way to print them.
func (s Snapshot) String() string {
	if len(s.Rows) == 0 || len(s.Columns) < 2 {
		return ""
	}
	flat := make([]float64, 0, len(s.Rows)*len(s.Columns))
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return fmt.Sprintf("<row %d has %d values for %d columns>", i, len(row), len(s.Columns))
		}
		flat = append(flat, row...)
	}
	data := mat.NewDense(len(s.Rows), len(s.Columns), flat)
	return format(s.Columns[:len(s.Columns)-1], s.RowLabels, data)
}
