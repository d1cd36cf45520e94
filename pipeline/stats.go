package pipeline

import "sync/atomic"

// stageStats are lightweight per-pipeline-run counters, independent of
// the process-wide prometheus surface in package stats — these back
// the queue-size/throughput log lines the supervisor's periodic
// logging toggle emits.
type stageStats struct {
	read, fetched, formatted, stored, acked atomic.Int64
}

func (s *stageStats) incRead()      { s.read.Add(1) }
func (s *stageStats) incFetched()   { s.fetched.Add(1) }
func (s *stageStats) incFormatted() { s.formatted.Add(1) }
func (s *stageStats) incStored()    { s.stored.Add(1) }
func (s *stageStats) incAcked()     { s.acked.Add(1) }

func (s *stageStats) snapshot() (read, fetched, formatted, stored, acked int64) {
	return s.read.Load(), s.fetched.Load(), s.formatted.Load(), s.stored.Load(), s.acked.Load()
}
