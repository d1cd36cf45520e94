package queue

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// StdoutQueue implements only Enqueue: a write-only sink for `seed`
// dry-runs and pipelines piping into another process's stdin.
type StdoutQueue struct {
	w *bufio.Writer
}

func NewStdoutQueue(w io.Writer) *StdoutQueue {
	return &StdoutQueue{w: bufio.NewWriter(w)}
}

func (s *StdoutQueue) Enqueue(payloads [][]byte) (EnqueueResult, error) {
	if len(payloads) > MaxBatch {
		return EnqueueResult{}, errors.Errorf("queue: batch of %d exceeds max %d", len(payloads), MaxBatch)
	}
	for _, p := range payloads {
		if _, err := s.w.Write(p); err != nil {
			return EnqueueResult{}, errors.Wrap(err, "queue: write stdout")
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return EnqueueResult{}, errors.Wrap(err, "queue: write stdout")
		}
	}
	return EnqueueResult{Queued: len(payloads)}, s.w.Flush()
}

func (s *StdoutQueue) Read() (Handle, error)  { return Handle{}, errUnsupported("Read", "stdout") }
func (s *StdoutQueue) Done(Handle) error      { return errUnsupported("Done", "stdout") }
func (s *StdoutQueue) Clear() (int, error)    { return 0, errUnsupported("Clear", "stdout") }

var _ Queue = (*StdoutQueue)(nil)
