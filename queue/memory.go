package queue

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/teris-io/shortid"
)

// MemoryQueue is an in-process back-end for single-process testing.
// Guarded by a single mutex.
type MemoryQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	visible []Handle
	closed  bool
}

func NewMemoryQueue() *MemoryQueue {
	q := &MemoryQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *MemoryQueue) Enqueue(payloads [][]byte) (EnqueueResult, error) {
	if len(payloads) > MaxBatch {
		return EnqueueResult{}, errors.Errorf("queue: batch of %d exceeds max %d", len(payloads), MaxBatch)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range payloads {
		id, _ := shortid.Generate()
		q.visible = append(q.visible, Handle{ProviderHandle: id, Payload: p, SentAt: time.Now()})
	}
	q.cond.Broadcast()
	return EnqueueResult{Queued: len(payloads), InFlight: 0}, nil
}

func (q *MemoryQueue) Read() (Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.visible) == 0 {
		if q.closed {
			return Handle{}, errors.New("queue: closed")
		}
		q.cond.Wait()
	}
	h := q.visible[0]
	q.visible = q.visible[1:]
	return h, nil
}

// Done is a no-op: the in-memory back-end removes a message from
// visibility at Read time rather than modeling a separate in-flight
// state, which is sufficient for single-process tests.
func (q *MemoryQueue) Done(Handle) error { return nil }

func (q *MemoryQueue) Clear() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.visible)
	q.visible = nil
	return n, nil
}

// Close unblocks any pending Read with an error; used by tests to stop
// a reader goroutine cleanly.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

var _ Queue = (*MemoryQueue)(nil)
