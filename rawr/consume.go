package rawr

import (
	"github.com/ducdk90/tilequeue/queue"
	"github.com/ducdk90/tilequeue/stats"
	"github.com/ducdk90/tilequeue/tile"
	"github.com/ducdk90/tilequeue/toi"
)

// ToiIntersector intersects a RAWR message's coords with the current
// TOI, conditionally refreshed by ETag via toi.Source.
type ToiIntersector struct {
	Source *toi.Source
}

func (ti *ToiIntersector) Intersect(coords []tile.Coord) ([]tile.Coord, *tile.IntersectMetrics, error) {
	set, err := ti.Source.Get()
	if err != nil {
		return nil, nil, err
	}
	expired := tile.NewSet(coords...)
	out, metrics := tile.ExplodeAndIntersect(expired, set, 0)
	survivors := make([]tile.Coord, 0, len(coords))
	for c := range out {
		survivors = append(survivors, c)
	}
	return survivors, metrics, nil
}

// GenFunc invokes the raw-tile generator (supplied by the embedding
// deployment) for one ancestor coord; tests supply a fixture.
type GenFunc func(ancestor tile.Coord) (Tile, error)

// Consumer is the RAWR-queue consumer loop: read one message, verify
// the common ancestor, run the raw-tile generator, intersect with
// TOI, forward survivors to the main input queue, ack.
type Consumer struct {
	RawrQueue   queue.Queue
	MainQueue   queue.Queue
	GroupByZoom uint32
	Gen         GenFunc
	Intersector *ToiIntersector
	Stats       *stats.Stats
}

// ConsumeOnce runs a single read/generate/intersect/requeue/ack cycle.
// A 0-message read is treated as a normal idle, reported via the
// ok=false, err=nil return so callers retry rather than abort.
func (c *Consumer) ConsumeOnce() (ok bool, err error) {
	var h queue.Handle
	done := c.Stats.TimeBlock("queue-read")
	h, err = c.RawrQueue.Read()
	done()
	if err != nil {
		if queue.IsNoMessage(err) {
			return false, nil
		}
		return false, err
	}

	coords, err := UnmarshalPayload(h.Payload)
	if err != nil {
		return false, err
	}
	parent, err := CommonParent(coords, c.GroupByZoom)
	if err != nil {
		return false, err
	}

	genDone := c.Stats.TimeBlock("rawr-gen")
	rawrTile, err := c.Gen(parent)
	genDone()
	if err != nil {
		return false, err
	}

	isectDone := c.Stats.TimeBlock("toi-intersect")
	survivors, metrics, err := c.Intersector.Intersect(coords)
	isectDone()
	if err != nil {
		return false, err
	}
	c.Stats.ObserveIntersect(metrics.ToiSize, metrics.Candidate, metrics.Hits, metrics.Misses)

	writeDone := c.Stats.TimeBlock("queue-write")
	err = EnqueueAll(c.MainQueue, survivors)
	writeDone()
	if err != nil {
		return false, err
	}

	_ = rawrTile // persisted by Gen itself via rawr.WriteToStore

	doneDone := c.Stats.TimeBlock("queue-done")
	err = c.RawrQueue.Done(h)
	doneDone()
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnqueueAll sends each coord as its own single-coord message, batched
// in groups of up to queue.MaxBatch enqueue calls. Unlike Dispatch,
// coords are never grouped into one payload — callers use this against
// queues whose readers expect exactly one coord per message (the main
// input queue).
func EnqueueAll(q queue.Queue, coords []tile.Coord) error {
	payloads := make([][]byte, 0, len(coords))
	for _, c := range coords {
		payloads = append(payloads, []byte(c.String()))
	}
	for i := 0; i < len(payloads); i += queue.MaxBatch {
		end := i + queue.MaxBatch
		if end > len(payloads) {
			end = len(payloads)
		}
		if len(payloads[i:end]) == 0 {
			continue
		}
		if _, err := q.Enqueue(payloads[i:end]); err != nil {
			return err
		}
	}
	return nil
}
