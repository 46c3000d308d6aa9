package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/simplexviz/simplex-core/pkg/utils"
)

// DefaultWindow is the number of recent samples kept per label set for
// percentile computation. Counts are never windowed.
const DefaultWindow = 1024

// Observation is one completed solve request
type Observation struct {
	Method     string
	Status     string // optimal, infeasible, ... or an error kind
	Iterations int
	Duration   time.Duration
	Failed     bool
}

// Aggregation summarizes one method/status combination
type Aggregation struct {
	Method         string  `json:"method"`
	Status         string  `json:"status"`
	Count          int64   `json:"count"`
	MeanDurationMs float64 `json:"mean_duration_ms"`
	P95DurationMs  float64 `json:"p95_duration_ms"`
	MeanIterations float64 `json:"mean_iterations"`
	MaxIterations  int     `json:"max_iterations"`
}

// Summary is the snapshot served by the metrics endpoint
type Summary struct {
	StartTime time.Time        `json:"start_time"`
	Uptime    string           `json:"uptime"`
	Total     int64            `json:"total"`
	Failed    int64            `json:"failed"`
	ByMethod  map[string]int64 `json:"by_method"`
	Groups    []*Aggregation   `json:"groups"`
}

type series struct {
	method, status string
	count          int64
	maxIterations  int
	durations      []float64 // ms, ring of the last window samples
	iterations     []float64
	next           int
}

// Collector aggregates solve observations; safe for concurrent use
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	window    int
	total     int64
	failed    int64

	// label key (method|status) -> series
	series map[string]*series
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return NewCollectorWithWindow(DefaultWindow)
}

// NewCollectorWithWindow creates a collector keeping at most window samples
// per label set for percentiles
func NewCollectorWithWindow(window int) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Collector{
		startTime: time.Now(),
		window:    window,
		series:    make(map[string]*series),
	}
}

// Observe records a completed solve
func (c *Collector) Observe(o Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if o.Failed {
		c.failed++
	}

	key := labelKey(o.Method, o.Status)
	s := c.series[key]
	if s == nil {
		s = &series{method: o.Method, status: o.Status}
		c.series[key] = s
	}
	s.count++
	if o.Iterations > s.maxIterations {
		s.maxIterations = o.Iterations
	}

	ms := float64(o.Duration) / float64(time.Millisecond)
	if len(s.durations) < c.window {
		s.durations = append(s.durations, ms)
		s.iterations = append(s.iterations, float64(o.Iterations))
		return
	}
	s.durations[s.next] = ms
	s.iterations[s.next] = float64(o.Iterations)
	s.next = (s.next + 1) % c.window
}

// GetAggregation returns the aggregation for one method/status pair, or nil
func (c *Collector) GetAggregation(method, status string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.series[labelKey(method, status)]
	if s == nil {
		return nil
	}
	return s.aggregate()
}

// GetSummary returns a summary of all collected observations
func (c *Collector) GetSummary() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := &Summary{
		StartTime: c.startTime,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Total:     c.total,
		Failed:    c.failed,
		ByMethod:  make(map[string]int64),
		Groups:    make([]*Aggregation, 0, len(c.series)),
	}
	for _, s := range c.series {
		summary.ByMethod[s.method] += s.count
		summary.Groups = append(summary.Groups, s.aggregate())
	}
	sort.Slice(summary.Groups, func(i, j int) bool {
		if summary.Groups[i].Method != summary.Groups[j].Method {
			return summary.Groups[i].Method < summary.Groups[j].Method
		}
		return summary.Groups[i].Status < summary.Groups[j].Status
	})
	return summary
}

// Clear drops all observations and restarts the clock
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = make(map[string]*series)
	c.total = 0
	c.failed = 0
	c.startTime = time.Now()
}

// aggregate computes statistics (caller must hold lock)
func (s *series) aggregate() *Aggregation {
	return &Aggregation{
		Method:         s.method,
		Status:         s.status,
		Count:          s.count,
		MeanDurationMs: utils.Round(utils.Mean(s.durations), 3),
		P95DurationMs:  utils.Round(utils.P95(s.durations), 3),
		MeanIterations: utils.Round(utils.Mean(s.iterations), 2),
		MaxIterations:  s.maxIterations,
	}
}

// labelKey creates a key from labels for map lookup
func labelKey(method, status string) string {
	return strings.ToLower(method) + "|" + strings.ToLower(status)
}
