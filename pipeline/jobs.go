// Package pipeline wires the staged processing pipeline: queue reader
// -> data fetcher -> CPU formatter -> blob sink -> ack writer,
// connected by bounded channels, with a sentinel-counted
// drain-then-stop shutdown state machine. Each stage is one
// goroutine-per-worker loop over an upstream channel plus a stop flag:
// drain until a sentinel, then finish.
package pipeline

import (
	"github.com/ducdk90/tilequeue/fetch"
	"github.com/ducdk90/tilequeue/queue"
	"github.com/ducdk90/tilequeue/tile"
)

// fetchJob is one decoded coord handed from Queue Reader to Data
// Fetcher. A job with sentinel=true carries no payload and exists only
// to signal "no more work" to exactly one worker.
type fetchJob struct {
	handle   queue.Handle
	coord    tile.Coord
	sentinel bool
}

// formatJob is one fetched feature bundle handed to the CPU Formatter.
type formatJob struct {
	handle   queue.Handle
	coord    tile.Coord
	bundle   fetch.Bundle
	refcount int // number of configured output formats; seeds the Ack Writer's refcount
	sentinel bool
}

// storeJob is one Formatted Artifact handed to the Blob Sink.
type storeJob struct {
	handle   queue.Handle
	coord    tile.Coord
	format   string
	bytes    []byte
	refcount int // number of formats; carried through to seed the Ack Writer's refcount
	sentinel bool
}

// ackJob notifies the Ack Writer that one (coord, format) artifact is
// durably stored.
type ackJob struct {
	handle   queue.Handle
	refcount int
	sentinel bool
}

func sentinels[T any](n int, mk func() T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = mk()
	}
	return out
}
