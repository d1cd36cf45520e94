// Package queue implements the duck-typed queue back-end contract:
// enqueue/read/done/clear, with five selectable back-ends behind one
// interface.
package queue

import "time"

// MaxBatch is the largest batch enqueue accepts in one call.
const MaxBatch = 10

// Handle bundles a provider-opaque token with the message payload and
// any provider metadata (e.g. sent-timestamp) needed to ack it later.
type Handle struct {
	ProviderHandle string
	Payload        []byte
	SentAt         time.Time
}

// EnqueueResult reports how many coords were accepted and a
// best-effort count of how many are currently in flight.
type EnqueueResult struct {
	Queued   int
	InFlight int
}

// Queue is the capability contract every back-end implements. Not
// every back-end supports every operation: the standard-output
// back-end, for instance, only implements Enqueue and returns an error
// from the rest.
type Queue interface {
	// Enqueue accepts up to MaxBatch payloads; a failure raises and no
	// payload is marked "in flight" locally (atomic w.r.t. partial
	// failure).
	Enqueue(payloads [][]byte) (EnqueueResult, error)
	// Read returns exactly one message. When none is available, the
	// SQS and cache back-ends return an error for which IsNoMessage is
	// true. Only the SQS back-end makes unacked messages reappear, after
	// its visibility timeout.
	Read() (Handle, error)
	// Done acknowledges a handle; idempotent from the caller's
	// perspective.
	Done(h Handle) error
	// Clear drains every currently visible message, returning the
	// count removed.
	Clear() (int, error)
}

// unsupportedOp (built by errUnsupported) is returned by back-ends for
// operations outside their capability set (e.g. Read on the standard-output back-end).
type unsupportedOp struct{ op, backend string }

func (e *unsupportedOp) Error() string {
	return "queue: " + e.op + " not supported by " + e.backend + " backend"
}

func errUnsupported(op, backend string) error { return &unsupportedOp{op, backend} }
