package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_SnapshotGroupsByKind verifies requests, store queries and API calls aggregate separately.
func TestCollector_SnapshotGroupsByKind(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /calendar", StatusCode: 200, DurationMs: 12, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /calendar", StatusCode: 200, DurationMs: 28, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "localstate.Load", DurationMs: 2, Timestamp: now})
	c.Record(Entry{Kind: KindAPICall, Path: "GET /appointments", StatusCode: 200, DurationMs: 80, Timestamp: now})
	c.Record(Entry{Kind: KindAPICall, Path: "GET /staff", StatusCode: 502, DurationMs: 40, Timestamp: now})
	c.Record(Entry{Kind: KindAPICall, Path: "GET /staff", DurationMs: 10, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRequests != 6 {
		t.Errorf("TotalRequests = %d, want 6", snap.TotalRequests)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].AvgMs != 20 {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Fatalf("SlowestQueries len = %d, want 1", len(snap.SlowestQueries))
	}
	if len(snap.SlowestAPICalls) != 2 {
		t.Fatalf("SlowestAPICalls len = %d, want 2", len(snap.SlowestAPICalls))
	}
	if snap.SlowestAPICalls[0].Path != "GET /appointments" {
		t.Errorf("slowest API call = %q", snap.SlowestAPICalls[0].Path)
	}
	if snap.SlowestAPICalls[1].Count != 2 || snap.SlowestAPICalls[1].MaxMs != 40 {
		t.Errorf("staff stat = %+v", snap.SlowestAPICalls[1])
	}
	if snap.APIErrors != 2 {
		t.Errorf("APIErrors = %d, want 2 (one 5xx, one transport failure)", snap.APIErrors)
	}
	if snap.APICallP95Ms < 70 || snap.APICallP95Ms > 80 {
		t.Errorf("APICallP95Ms = %v, want between 70 and 80", snap.APICallP95Ms)
	}
	if !snap.Since.Equal(now.Add(-time.Minute)) {
		t.Errorf("Since = %v", snap.Since)
	}
}

// TestCollector_TopNOrder verifies the slowest-first order, tie break and cap.
func TestCollector_TopNOrder(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()
	c.Record(Entry{Kind: KindRequest, Path: "GET /sales", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /customers", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /calendar", DurationMs: 9, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 2)
	if len(snap.SlowestPaths) != 2 {
		t.Fatalf("len = %d, want 2", len(snap.SlowestPaths))
	}
	if snap.SlowestPaths[0].Path != "GET /calendar" || snap.SlowestPaths[1].Path != "GET /customers" {
		t.Errorf("order = %+v", snap.SlowestPaths)
	}
}

// TestCollector_RingKeepsNewest verifies a full buffer overwrites the oldest entries.
func TestCollector_RingKeepsNewest(t *testing.T) {
	c := NewCollector(4)
	now := time.Now()
	for i := 0; i < 7; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /api/calendar", DurationMs: float64(i), Timestamp: now})
	}
	if c.TotalRecorded() != 7 {
		t.Errorf("TotalRecorded = %d, want 7", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.SlowestPaths[0].Count != 4 {
		t.Errorf("Count = %d, want 4", snap.SlowestPaths[0].Count)
	}
	if snap.SlowestPaths[0].MaxMs != 6 {
		t.Errorf("MaxMs = %v, want 6", snap.SlowestPaths[0].MaxMs)
	}
}

// TestCollector_Percentiles checks P50/P95/P99 over a uniform spread.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /sales", DurationMs: float64(i), Timestamp: now})
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	checks := []struct {
		name   string
		got    float64
		lo, hi float64
	}{
		{"p50", snap.RequestP50Ms, 49, 51},
		{"p95", snap.RequestP95Ms, 94, 96},
		{"p99", snap.RequestP99Ms, 98, 100},
	}
	for _, ck := range checks {
		if ck.got < ck.lo || ck.got > ck.hi {
			t.Errorf("%s = %v, want in [%v, %v]", ck.name, ck.got, ck.lo, ck.hi)
		}
	}
}

// TestCollector_SnapshotSince drops entries older than the window.
func TestCollector_SnapshotSince(t *testing.T) {
	c := NewCollector(10)
	c.Record(Entry{Kind: KindAPICall, Path: "GET /old", DurationMs: 100, Timestamp: time.Now().Add(-3 * time.Hour)})
	c.Record(Entry{Kind: KindAPICall, Path: "GET /new", DurationMs: 10, Timestamp: time.Now()})

	snap := c.Snapshot(time.Now().Add(-time.Hour), 10)
	if len(snap.SlowestAPICalls) != 1 || snap.SlowestAPICalls[0].Path != "GET /new" {
		t.Fatalf("SlowestAPICalls = %+v", snap.SlowestAPICalls)
	}
}

// TestCollector_ConcurrentRecord verifies Record is goroutine safe.
func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(500)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Record(Entry{Kind: KindAPICall, Path: "GET /appointments", DurationMs: 1, Timestamp: now})
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 500 {
		t.Errorf("TotalRecorded = %d, want 500", c.TotalRecorded())
	}
}

func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindAPICall, Path: "GET /appointments", StatusCode: 200, DurationMs: 1.5, Timestamp: time.Now()}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}
