package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatalf("expected non-nil collector")
	}
	if s := c.GetSummary(); s.Total != 0 || len(s.Groups) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestCollectorObserveAndAggregate(t *testing.T) {
	c := NewCollector()

	c.Observe(Observation{Method: "two-phase", Status: "optimal", Iterations: 2, Duration: 2 * time.Millisecond})
	c.Observe(Observation{Method: "two-phase", Status: "optimal", Iterations: 4, Duration: 4 * time.Millisecond})
	c.Observe(Observation{Method: "dual", Status: "infeasible", Iterations: 1, Duration: time.Millisecond})

	agg := c.GetAggregation("two-phase", "optimal")
	if agg == nil {
		t.Fatalf("expected aggregation for two-phase/optimal")
	}
	if agg.Count != 2 {
		t.Fatalf("expected count 2, got %d", agg.Count)
	}
	if agg.MeanIterations != 3 {
		t.Fatalf("expected mean iterations 3, got %f", agg.MeanIterations)
	}
	if agg.MaxIterations != 4 {
		t.Fatalf("expected max iterations 4, got %d", agg.MaxIterations)
	}
	if agg.MeanDurationMs != 3 {
		t.Fatalf("expected mean duration 3ms, got %f", agg.MeanDurationMs)
	}
	if agg.P95DurationMs != 3.8 {
		t.Fatalf("expected p95 duration 3.8ms, got %f", agg.P95DurationMs)
	}

	if c.GetAggregation("dual", "optimal") != nil {
		t.Fatalf("expected nil aggregation for unseen label set")
	}
}

func TestCollectorSummary(t *testing.T) {
	c := NewCollector()
	c.Observe(Observation{Method: "dual", Status: "optimal", Iterations: 2})
	c.Observe(Observation{Method: "two-phase", Status: "unbounded", Iterations: 1})
	c.Observe(Observation{Method: "two-phase", Status: "ValidationError", Failed: true})

	s := c.GetSummary()
	if s.Total != 3 {
		t.Fatalf("expected total 3, got %d", s.Total)
	}
	if s.Failed != 1 {
		t.Fatalf("expected 1 failed, got %d", s.Failed)
	}
	if s.ByMethod["two-phase"] != 2 || s.ByMethod["dual"] != 1 {
		t.Fatalf("unexpected per-method counts: %v", s.ByMethod)
	}
	if len(s.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(s.Groups))
	}
	// sorted by method then status
	if s.Groups[0].Method != "dual" || s.Groups[1].Status != "ValidationError" || s.Groups[2].Status != "unbounded" {
		t.Fatalf("unexpected group order: %+v %+v %+v", s.Groups[0], s.Groups[1], s.Groups[2])
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollectorWithWindow(2)
	c.Observe(Observation{Method: "dual", Status: "optimal", Iterations: 100})
	c.Observe(Observation{Method: "dual", Status: "optimal", Iterations: 2})
	c.Observe(Observation{Method: "dual", Status: "optimal", Iterations: 4})

	agg := c.GetAggregation("dual", "optimal")
	if agg.Count != 3 {
		t.Fatalf("count must not be windowed, got %d", agg.Count)
	}
	if agg.MeanIterations != 3 {
		t.Fatalf("expected mean over the last two samples (3), got %f", agg.MeanIterations)
	}
	if agg.MaxIterations != 100 {
		t.Fatalf("max must not be windowed, got %d", agg.MaxIterations)
	}
}

func TestCollectorClear(t *testing.T) {
	c := NewCollector()
	c.Observe(Observation{Method: "dual", Status: "optimal"})
	c.Clear()

	if s := c.GetSummary(); s.Total != 0 || len(s.Groups) != 0 {
		t.Fatalf("expected cleared summary, got %+v", s)
	}
}

func TestCollectorConcurrentObserve(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Observe(Observation{Method: "two-phase", Status: "optimal", Iterations: i})
			_ = c.GetSummary()
		}(i)
	}
	wg.Wait()

	if agg := c.GetAggregation("two-phase", "optimal"); agg.Count != 50 || agg.MaxIterations != 49 {
		t.Fatalf("expected 50 observations with max 49, got %+v", agg)
	}
}
