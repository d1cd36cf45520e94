package queue

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryQueueEnqueueRead(t *testing.T) {
	q := NewMemoryQueue()
	res, err := q.Enqueue([][]byte{[]byte("1/2/3"), []byte("4/5/6")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if res.Queued != 2 {
		t.Fatalf("Queued = %d, want 2", res.Queued)
	}

	h1, err := q.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(h1.Payload) != "1/2/3" {
		t.Fatalf("Read() payload = %q, want 1/2/3", h1.Payload)
	}

	h2, err := q.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(h2.Payload) != "4/5/6" {
		t.Fatalf("Read() payload = %q, want 4/5/6", h2.Payload)
	}

	if err := q.Done(h1); err != nil {
		t.Fatalf("Done: %v", err)
	}
}

func TestMemoryQueueEnqueueBatchTooLarge(t *testing.T) {
	q := NewMemoryQueue()
	payloads := make([][]byte, MaxBatch+1)
	for i := range payloads {
		payloads[i] = []byte("x")
	}
	if _, err := q.Enqueue(payloads); err == nil {
		t.Fatal("expected error enqueuing a batch over MaxBatch")
	}
}

func TestMemoryQueueReadBlocksThenUnblocksOnEnqueue(t *testing.T) {
	q := NewMemoryQueue()
	done := make(chan Handle, 1)
	go func() {
		h, err := q.Read()
		if err != nil {
			t.Errorf("Read: %v", err)
			return
		}
		done <- h
	}()

	if _, err := q.Enqueue([][]byte{[]byte("7/8/9")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case h := <-done:
		if string(h.Payload) != "7/8/9" {
			t.Fatalf("payload = %q, want 7/8/9", h.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Enqueue")
	}
}

func TestMemoryQueueCloseUnblocksRead(t *testing.T) {
	q := NewMemoryQueue()
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Read()
		errCh <- err
	}()
	q.Close()
	if err := <-errCh; err == nil {
		t.Fatal("expected Read to return an error after Close")
	}
}

func TestMemoryQueueClear(t *testing.T) {
	q := NewMemoryQueue()
	q.Enqueue([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	n, err := q.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Fatalf("Clear() = %d, want 3", n)
	}
}

func TestFileQueueReadDoneThenClearUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.bin")
	q, err := NewFileQueue(path)
	if err != nil {
		t.Fatalf("NewFileQueue: %v", err)
	}
	defer q.Close()

	if _, err := q.Enqueue([][]byte{[]byte("3/1/1"), []byte("3/1/2")}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h, err := q.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(h.Payload) != "3/1/1" {
		t.Fatalf("payload = %q, want 3/1/1", h.Payload)
	}
	if err := q.Done(h); err != nil {
		t.Fatalf("Done: %v", err)
	}

	if _, err := q.Clear(); err == nil {
		t.Fatal("expected Clear to be unsupported on the file backend")
	}
}

func TestStdoutQueueEnqueueWritesPayloads(t *testing.T) {
	var buf bytes.Buffer
	q := NewStdoutQueue(&buf)
	res, err := q.Enqueue([][]byte{[]byte("1/0/0"), []byte("1/1/1")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if res.Queued != 2 {
		t.Fatalf("Queued = %d, want 2", res.Queued)
	}
	if got := buf.String(); got != "1/0/0\n1/1/1\n" {
		t.Fatalf("stdout body = %q", got)
	}

	if _, err := q.Read(); err == nil {
		t.Fatal("expected Read to be unsupported on the stdout backend")
	}
	if err := q.Done(Handle{}); err == nil {
		t.Fatal("expected Done to be unsupported on the stdout backend")
	}
	if _, err := q.Clear(); err == nil {
		t.Fatal("expected Clear to be unsupported on the stdout backend")
	}
}
