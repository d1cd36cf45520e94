package pipeline

import (
	"sync"

	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/queue"
)

// ackWriterStage owns a refcount per in-flight handle, seeded at
// number-of-formats by the Data Fetcher and decremented once per
// stored artifact. Done is called exactly once, when the refcount for
// a handle reaches zero — i.e. once every configured format for that
// coord is durably stored.
//
// A single goroutine owns the map, so no mutex is strictly required,
// but it guards with one anyway in case a future caller adds a second
// writer.
type ackWriterStage struct {
	q    queue.Queue
	in   <-chan ackJob
	mu   sync.Mutex
	refs map[string]int

	stats *stageStats
}

func newAckWriterStage(q queue.Queue, in <-chan ackJob, stats *stageStats) *ackWriterStage {
	return &ackWriterStage{
		q:     q,
		in:    in,
		refs:  make(map[string]int),
		stats: stats,
	}
}

// run drains in until its single sentinel arrives. The ack writer has
// exactly one worker — there is nothing downstream to fan the
// sentinel count out to, and the refcount map has a single owner.
func (a *ackWriterStage) run() {
	for job := range a.in {
		if job.sentinel {
			return
		}
		key := job.handle.ProviderHandle

		a.mu.Lock()
		n, ok := a.refs[key]
		if !ok {
			n = job.refcount
		}
		n--
		if n <= 0 {
			delete(a.refs, key)
		} else {
			a.refs[key] = n
		}
		a.mu.Unlock()

		if n <= 0 {
			if err := a.q.Done(job.handle); err != nil {
				nlog.Warnf("ackwriter: done %v: %v", job.handle, err)
				continue
			}
			a.stats.incAcked()
		}
	}
}
