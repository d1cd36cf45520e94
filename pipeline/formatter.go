package pipeline

import (
	"runtime"
	"sync"

	"github.com/ducdk90/tilequeue/format"
	"github.com/ducdk90/tilequeue/internal/nlog"
	pstats "github.com/ducdk90/tilequeue/stats"
)

// formatterStage is the CPU Formatter: one worker per CPU. Go has no
// single-threaded-interpreter constraint, so this is a goroutine pool
// over an in-memory channel rather than OS processes and
// inter-process byte queues.
type formatterStage struct {
	registry format.Registry
	in       <-chan formatJob
	out      chan<- storeJob
	sinkCnt  int
	stats    *stageStats
	metrics  *pstats.Stats
}

func newFormatterStage(registry format.Registry, in <-chan formatJob, out chan<- storeJob, sinkCnt int, stats *stageStats, metrics *pstats.Stats) *formatterStage {
	return &formatterStage{registry: registry, in: in, out: out, sinkCnt: sinkCnt, stats: stats, metrics: metrics}
}

func (f *formatterStage) run() {
	workers := runtime.NumCPU()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range f.in {
				if job.sentinel {
					return
				}
				layers := make(format.FeatureLayers, len(job.bundle))
				for name, feats := range job.bundle {
					layers[name] = feats
				}
				encoded, err := f.registry.EncodeAll(layers, format.Bounds{})
				if err != nil {
					nlog.Warnf("formatter: coord %s: %v", job.coord, err)
					f.metrics.ErrorsProcess.Inc()
					continue
				}
				f.stats.incFormatted()
				for ext, bytes := range encoded {
					f.out <- storeJob{
						handle:   job.handle,
						coord:    job.coord,
						format:   ext,
						bytes:    bytes,
						refcount: job.refcount,
					}
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < f.sinkCnt; i++ {
		f.out <- storeJob{sentinel: true}
	}
}
