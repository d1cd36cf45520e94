// Package stats is the pipeline's metrics surface: intersect totals,
// stored/not_stored counts, RAWR phase timings, and fetch/process
// error counts.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the pipeline-wide metrics registry.
type Stats struct {
	Registry *prometheus.Registry

	Stored      *prometheus.CounterVec // labels: format
	NotStored   *prometheus.CounterVec // labels: format
	ErrorsFetch prometheus.Counter
	ErrorsProcess prometheus.Counter

	IntersectToiSize  prometheus.Gauge
	IntersectCandidate prometheus.Counter
	IntersectHits     prometheus.Counter
	IntersectMisses   prometheus.Counter

	RawrPhaseSeconds *prometheus.HistogramVec // labels: phase
}

// New registers and returns the full metrics surface against a fresh
// registry (tests use their own; the process command creates one
// long-lived registry, which no HTTP endpoint in this repository serves).
func New() *Stats {
	reg := prometheus.NewRegistry()
	s := &Stats{
		Registry: reg,
		Stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tilequeue_stored_total",
			Help: "Artifacts durably written to the blob store, by format.",
		}, []string{"format"}),
		NotStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tilequeue_not_stored_total",
			Help: "Artifacts that failed to store after retry, by format.",
		}, []string{"format"}),
		ErrorsFetch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilequeue_errors_fetch_total",
			Help: "Data Fetcher failures; the coord's handle is not acked.",
		}),
		ErrorsProcess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilequeue_errors_process_total",
			Help: "CPU Formatter encode failures; the artifact is not emitted.",
		}),
		IntersectToiSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tilequeue_intersect_toi_size",
			Help: "Size of the TOI set used by the most recent intersection pass.",
		}),
		IntersectCandidate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilequeue_intersect_candidates_total",
			Help: "Coords tested for TOI membership across all intersection passes.",
		}),
		IntersectHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilequeue_intersect_hits_total",
			Help: "Coords found in the TOI set.",
		}),
		IntersectMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilequeue_intersect_misses_total",
			Help: "Coords not found in the TOI set.",
		}),
		RawrPhaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "tilequeue_rawr_phase_seconds",
			Help: "RAWR consume-loop phase duration: queue-read, rawr-gen, toi-intersect, queue-write, queue-done.",
		}, []string{"phase"}),
	}
	reg.MustRegister(
		s.Stored, s.NotStored, s.ErrorsFetch, s.ErrorsProcess,
		s.IntersectToiSize, s.IntersectCandidate, s.IntersectHits, s.IntersectMisses,
		s.RawrPhaseSeconds,
	)
	return s
}

// ObserveIntersect folds one ExplodeAndIntersect call's metrics in.
func (s *Stats) ObserveIntersect(toiSize, candidates, hits, misses int) {
	s.IntersectToiSize.Set(float64(toiSize))
	s.IntersectCandidate.Add(float64(candidates))
	s.IntersectHits.Add(float64(hits))
	s.IntersectMisses.Add(float64(misses))
}

// TimeBlock times one RAWR phase, mirroring the original's time_block
// context manager: `defer stats.TimeBlock("rawr-gen")()`.
func (s *Stats) TimeBlock(phase string) func() {
	start := time.Now()
	return func() {
		s.RawrPhaseSeconds.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}
