package pipeline

import (
	"context"
	"sync"

	"github.com/ducdk90/tilequeue/fetch"
	"github.com/ducdk90/tilequeue/internal/nlog"
	pstats "github.com/ducdk90/tilequeue/stats"
)

// fetcherStage runs n concurrent workers over the shared in channel,
// each calling the Data Fetcher for one coord at a time. On failure
// the coord's handle is neither forwarded nor acked — it remains
// unacked for redelivery.
type fetcherStage struct {
	fetcher      *fetch.Fetcher
	in           <-chan fetchJob
	out          chan<- formatJob
	workers      int
	formatCount  int
	formatterCnt int
	stats        *stageStats
	metrics      *pstats.Stats
}

func (f *fetcherStage) run() {
	var wg sync.WaitGroup
	wg.Add(f.workers)
	for i := 0; i < f.workers; i++ {
		go func() {
			defer wg.Done()
			for job := range f.in {
				if job.sentinel {
					return
				}
				bundle, err := f.fetcher.Fetch(context.Background(), job.coord)
				if err != nil {
					nlog.Warnf("fetcher: coord %s: %v", job.coord, err)
					f.metrics.ErrorsFetch.Inc()
					continue
				}
				f.stats.incFetched()
				f.out <- formatJob{
					handle:   job.handle,
					coord:    job.coord,
					bundle:   bundle,
					refcount: f.formatCount,
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < f.formatterCnt; i++ {
		f.out <- formatJob{sentinel: true}
	}
}
