package simplex

import "github.com/simplexviz/simplex-core/internal/tableau"

// recorder collects snapshots in pivot order. Each snapshot is a copy, so the
// live tableau can be mutated freely afterwards.
type recorder struct {
	snaps  []tableau.Snapshot
	pivots int
}

func (r *recorder) before(t *tableau.Tableau, phase string, row, col int) {
	r.snaps = append(r.snaps, t.Snapshot(len(r.snaps), phase, &tableau.Position{Row: row, Col: col}))
}

func (r *recorder) finish(t *tableau.Tableau, phase string) {
	r.snaps = append(r.snaps, t.Snapshot(len(r.snaps), phase, nil))
}
