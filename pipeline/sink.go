package pipeline

import (
	"sync"

	"github.com/ducdk90/tilequeue/internal/nlog"
	pstats "github.com/ducdk90/tilequeue/stats"
	"github.com/ducdk90/tilequeue/store"
)

// sinkStage is the Blob Sink: writes each artifact to its key and
// emits stored/not_stored counters. A store failure does not forward
// an ackJob — the handle's refcount is never satisfied and it expires
// for redelivery, which is exactly "do not decrement refcount"
// expressed as "never produce the decrement in the first place."
type sinkStage struct {
	backend           store.Backend
	prefix            string
	reducedRedundancy bool
	in                <-chan storeJob
	out               chan<- ackJob
	workers           int
	ackWriterCnt      int
	stats             *stageStats
	metrics           *pstats.Stats
}

func (s *sinkStage) run() {
	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for job := range s.in {
				if job.sentinel {
					return
				}
				key := store.Key(s.prefix, job.format, job.coord)
				if err := s.backend.Put(key, job.bytes, s.reducedRedundancy); err != nil {
					nlog.Warnf("sink: store %s: %v", key, err)
					s.metrics.NotStored.WithLabelValues(job.format).Inc()
					continue
				}
				s.metrics.Stored.WithLabelValues(job.format).Inc()
				s.stats.incStored()
				s.out <- ackJob{handle: job.handle, refcount: job.refcount}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < s.ackWriterCnt; i++ {
		s.out <- ackJob{sentinel: true}
	}
}
