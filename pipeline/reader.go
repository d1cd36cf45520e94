package pipeline

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/queue"
	"github.com/ducdk90/tilequeue/rawr"
	"github.com/ducdk90/tilequeue/tile"
)

// readerStage is the Queue Reader: long-polls the input queue,
// decodes payloads into coords, feeds the Fetcher.
type readerStage struct {
	q            queue.Queue
	out          chan<- fetchJob
	fetcherCount int
	stop         atomic.Bool
	stats        *stageStats
}

// run is the single reader worker loop. On stop (set externally by
// the supervisor) or on observing end-of-input (a Read error wrapping
// io.EOF), it sends one sentinel per fetcher worker downstream and
// returns. Other read errors are logged and the read is retried.
func (r *readerStage) run() {
	for {
		if r.stop.Load() {
			break
		}
		h, err := r.q.Read()
		if err != nil {
			if queue.IsNoMessage(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				nlog.Infof("reader: end of input, draining")
				break
			}
			nlog.Warnf("reader: read error: %v", err)
			continue
		}
		coord, err := decodeCoord(h.Payload)
		if err != nil {
			// Malformed queue payload: log, drop, ack — it will never
			// decode successfully on retry.
			nlog.Warnf("reader: malformed payload %q: %v", h.Payload, err)
			_ = r.q.Done(h)
			continue
		}
		r.out <- fetchJob{handle: h, coord: coord}
		r.stats.incRead()
	}

	for i := 0; i < r.fetcherCount; i++ {
		r.out <- fetchJob{sentinel: true}
	}
}

func decodeCoord(payload []byte) (tile.Coord, error) {
	coords, err := rawr.UnmarshalPayload(payload)
	if err != nil {
		return 0, err
	}
	if len(coords) != 1 {
		return 0, errors.Errorf("expected exactly one coord, got %d", len(coords))
	}
	return coords[0], nil
}
