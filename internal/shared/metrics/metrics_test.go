package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	var cumulative uint64
	want := []uint64{1, 2}
	for i := range snap.buckets {
		cumulative += snap.counts[i]
		if cumulative != want[i] {
			t.Fatalf("bucket %v cumulative = %d, want %d", snap.buckets[i], cumulative, want[i])
		}
	}
	if snap.count != 3 || snap.sum != 555 {
		t.Fatalf("unexpected count/sum %d/%v", snap.count, snap.sum)
	}
}

func TestRenderIncludesCounters(t *testing.T) {
	IncAnalysisStarted()
	AddClauses(2, 1)
	ObserveChunkDurationMs(120)
	out := Render()
	for _, name := range []string{"analysis_started_total", "clauses_rejected_total", "chunk_duration_ms_bucket{le=\"250\"}", "comparisons_rejected_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output:\n%s", name, out)
		}
	}
}
