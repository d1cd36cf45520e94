package pipeline

import (
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ducdk90/tilequeue/fetch"
	"github.com/ducdk90/tilequeue/format"
	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/queue"
	pstats "github.com/ducdk90/tilequeue/stats"
	"github.com/ducdk90/tilequeue/store"
)

// phase is the supervisor's lifecycle state machine:
// init -> running -> draining -> stopped.
type phase int

const (
	phaseInit phase = iota
	phaseRunning
	phaseDraining
	phaseStopped
)

// Options configures worker counts for each stage. Zero values fall
// back to sane single-digit defaults rather than failing closed, since
// a missing count is an operator oversight, not a fatal misconfiguration.
type Options struct {
	FetcherWorkers int
	SinkWorkers    int

	StorePrefix            string
	StoreReducedRedundancy bool

	QueueSizeLogging         bool
	QueueSizeLoggingInterval time.Duration
}

func (o Options) fetcherWorkers() int {
	if o.FetcherWorkers > 0 {
		return o.FetcherWorkers
	}
	return 4
}

func (o Options) sinkWorkers() int {
	if o.SinkWorkers > 0 {
		return o.SinkWorkers
	}
	return 4
}

// Supervisor owns the bounded channels between stages and the
// lifecycle state machine that drains them in topological order on
// shutdown.
type Supervisor struct {
	reader    *readerStage
	fetcher   *fetcherStage
	formatter *formatterStage
	sink      *sinkStage
	ackWriter *ackWriterStage

	stats *stageStats
	opts  Options

	mu    sync.Mutex
	state phase
}

// New wires the five stages front-to-back with four bounded channels:
// reader->fetcher holds decoded message handles and is sized to the
// queue batch size (queue.MaxBatch = 10); fetcher->formatter,
// formatter->sink and sink->ack writer hold 256 each.
func New(q queue.Queue, fetcher *fetch.Fetcher, registry format.Registry, backend store.Backend, metrics *pstats.Stats, opts Options) *Supervisor {
	fetcherN := opts.fetcherWorkers()
	sinkN := opts.sinkWorkers()

	fetched := make(chan fetchJob, queue.MaxBatch)
	formatted := make(chan formatJob, 256)
	stored := make(chan storeJob, 256)
	acked := make(chan ackJob, 256)

	stats := &stageStats{}

	reader := &readerStage{
		q:            q,
		out:          fetched,
		fetcherCount: fetcherN,
		stats:        stats,
	}
	fetcherStg := &fetcherStage{
		fetcher:      fetcher,
		in:           fetched,
		out:          formatted,
		workers:      fetcherN,
		formatCount:  len(registry),
		formatterCnt: runtime.NumCPU(),
		stats:        stats,
		metrics:      metrics,
	}
	formatterStg := newFormatterStage(registry, formatted, stored, sinkN, stats, metrics)
	sinkStg := &sinkStage{
		backend:           backend,
		prefix:            opts.StorePrefix,
		reducedRedundancy: opts.StoreReducedRedundancy,
		in:                stored,
		out:               acked,
		workers:           sinkN,
		ackWriterCnt:      1,
		stats:             stats,
		metrics:           metrics,
	}
	ackStg := newAckWriterStage(q, acked, stats)

	return &Supervisor{
		reader:    reader,
		fetcher:   fetcherStg,
		formatter: formatterStg,
		sink:      sinkStg,
		ackWriter: ackStg,
		stats:     stats,
		state:     phaseInit,
		opts:      opts,
	}
}

// Run starts all stages, installs the SIGTERM/SIGINT/SIGQUIT handler
// that flips the reader's stop flag, and blocks until every stage has
// drained in topological order: reader stops accepting new work, its
// sentinels propagate through fetcher -> formatter -> sink -> ack
// writer, and Run returns once the ack writer's single goroutine has
// exited.
func (s *Supervisor) Run() {
	s.setState(phaseRunning)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		nlog.Infof("pipeline: received %s, draining", sig)
		s.Stop()
	}()

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); s.reader.run() }()
	go func() { defer wg.Done(); s.fetcher.run() }()
	go func() { defer wg.Done(); s.formatter.run() }()
	go func() { defer wg.Done(); s.sink.run() }()
	go func() { defer wg.Done(); s.ackWriter.run() }()

	stopLogging := make(chan struct{})
	if s.opts.QueueSizeLogging {
		go s.logQueueSize(stopLogging)
	}

	wg.Wait()
	close(stopLogging)
	signal.Stop(sigCh)
	s.setState(phaseStopped)
}

// Stop flips the reader's stop flag, moving the supervisor into the
// draining phase. It does not block; call Run (or wait on it) to
// observe full drain.
func (s *Supervisor) Stop() {
	s.setState(phaseDraining)
	s.reader.stop.Store(true)
}

func (s *Supervisor) setState(p phase) {
	s.mu.Lock()
	s.state = p
	s.mu.Unlock()
}

// logQueueSize periodically logs stage throughput counters while the
// queue-size logging toggle is enabled, until stopCh closes.
func (s *Supervisor) logQueueSize(stopCh <-chan struct{}) {
	interval := s.opts.QueueSizeLoggingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			read, fetched, formatted, stored, acked := s.stats.snapshot()
			nlog.Infof("pipeline: read=%d fetched=%d formatted=%d stored=%d acked=%d", read, fetched, formatted, stored, acked)
		}
	}
}
