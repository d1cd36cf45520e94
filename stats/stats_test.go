package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIntersect(t *testing.T) {
	s := New()
	s.ObserveIntersect(100, 10, 4, 6)

	if got := testutil.ToFloat64(s.IntersectToiSize); got != 100 {
		t.Fatalf("IntersectToiSize = %v, want 100", got)
	}
	if got := testutil.ToFloat64(s.IntersectCandidate); got != 10 {
		t.Fatalf("IntersectCandidate = %v, want 10", got)
	}
	if got := testutil.ToFloat64(s.IntersectHits); got != 4 {
		t.Fatalf("IntersectHits = %v, want 4", got)
	}
	if got := testutil.ToFloat64(s.IntersectMisses); got != 6 {
		t.Fatalf("IntersectMisses = %v, want 6", got)
	}
}

func TestTimeBlockObservesDuration(t *testing.T) {
	s := New()
	done := s.TimeBlock("queue-read")
	time.Sleep(time.Millisecond)
	done()

	if got := testutil.CollectAndCount(s.RawrPhaseSeconds); got != 1 {
		t.Fatalf("RawrPhaseSeconds sample count = %d, want 1", got)
	}
}

func TestStoredNotStoredLabeledByFormat(t *testing.T) {
	s := New()
	s.Stored.WithLabelValues("pbf").Inc()
	s.Stored.WithLabelValues("json").Inc()
	s.NotStored.WithLabelValues("pbf").Inc()

	if got := testutil.ToFloat64(s.Stored.WithLabelValues("pbf")); got != 1 {
		t.Fatalf("Stored[pbf] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.Stored.WithLabelValues("json")); got != 1 {
		t.Fatalf("Stored[json] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.NotStored.WithLabelValues("pbf")); got != 1 {
		t.Fatalf("NotStored[pbf] = %v, want 1", got)
	}
}
