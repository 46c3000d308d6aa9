package solverd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/simplexviz/simplex-core/pkg/utils"
)

// DefaultHistorySize bounds the store when no size is configured.
const DefaultHistorySize = 200

// SolveRecord is one stored solve
type SolveRecord struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	DurationMs float64        `json:"duration_ms"`
	Request    *SolveRequest  `json:"request"`
	Result     *SolveResponse `json:"result"`
}

// Summary is the list view of a record, without tableaus
type Summary struct {
	ID           string   `json:"id"`
	CreatedAt    string   `json:"created_at"`
	Status       string   `json:"status"`
	Method       string   `json:"method"`
	Iterations   int      `json:"iterations"`
	OptimalValue *float64 `json:"optimal_value"`
}

// Summary returns the list view of the record
func (r *SolveRecord) Summary() Summary {
	return Summary{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		Status:       r.Result.Status,
		Method:       r.Result.Method,
		Iterations:   r.Result.Iterations,
		OptimalValue: r.Result.OptimalValue,
	}
}

// SolveStore keeps the most recent solves in memory, evicting the oldest
// once size records are held.
type SolveStore struct {
	mu    sync.RWMutex
	size  int
	order []string // oldest first
	byID  map[string]*SolveRecord
}

func NewSolveStore(size int) *SolveStore {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &SolveStore{
		size: size,
		byID: make(map[string]*SolveRecord),
	}
}

// Add stores rec, assigning an ID when it has none
func (s *SolveStore) Add(rec *SolveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = utils.GenerateSolveID()
	}
	if _, exists := s.byID[rec.ID]; exists {
		return fmt.Errorf("solve already exists: %s", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.byID[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	for len(s.order) > s.size {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *SolveStore) Get(id string) (*SolveRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}

func (s *SolveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns records newest first. An empty status matches every record;
// otherwise the comparison is case-insensitive.
func (s *SolveStore) List(limit, offset int, status string) []*SolveRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	out := make([]*SolveRecord, 0, min(limit, len(s.order)))
	skipped := 0
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.byID[s.order[i]]
		if status != "" && !strings.EqualFold(rec.Result.Status, status) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out
}
