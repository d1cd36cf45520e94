package queue

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
)

// FileQueue is an append-only-file back-end: the seed generator
// appends lz4-compressed, length-prefixed payloads, a separate process
// reads from a persisted byte offset. There is no ack-driven removal;
// Done simply advances nothing further (the offset file is the
// durability point).
type FileQueue struct {
	path       string
	offsetPath string

	mu        sync.Mutex
	writeF    *os.File
	readF     *os.File
	reader    *bufio.Reader
	offset    int64
	hashTable []int
}

func NewFileQueue(path string) (*FileQueue, error) {
	wf, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "queue: open %s for append", path)
	}
	rf, err := os.Open(path)
	if err != nil {
		wf.Close()
		return nil, errors.Wrapf(err, "queue: open %s for read", path)
	}
	fq := &FileQueue{path: path, offsetPath: path + ".offset", writeF: wf, readF: rf, hashTable: make([]int, 1<<16)}
	fq.reader = bufio.NewReader(rf)
	fq.loadOffset()
	return fq, nil
}

func (q *FileQueue) loadOffset() {
	b, err := os.ReadFile(q.offsetPath)
	if err != nil || len(b) < 8 {
		return
	}
	off := int64(binary.BigEndian.Uint64(b))
	if _, err := q.readF.Seek(off, io.SeekStart); err == nil {
		q.offset = off
		q.reader = bufio.NewReader(q.readF)
	}
}

func (q *FileQueue) saveOffset() error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(q.offset))
	return os.WriteFile(q.offsetPath, b, 0o644)
}

// spillHeaderSize is the per-entry framing: 4 bytes original length, 4
// bytes compressed length (0 means the entry is stored uncompressed,
// e.g. because lz4 couldn't shrink it).
const spillHeaderSize = 8

func (q *FileQueue) Enqueue(payloads [][]byte) (EnqueueResult, error) {
	if len(payloads) > MaxBatch {
		return EnqueueResult{}, errors.Errorf("queue: batch of %d exceeds max %d", len(payloads), MaxBatch)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range payloads {
		compressed := make([]byte, lz4.CompressBlockBound(len(p)))
		n, err := lz4.CompressBlock(p, compressed, q.hashTable)
		if err != nil {
			return EnqueueResult{}, errors.Wrap(err, "queue: lz4 compress")
		}

		hdr := make([]byte, spillHeaderSize)
		binary.BigEndian.PutUint32(hdr[0:4], uint32(len(p)))
		body := p
		if n > 0 && n < len(p) {
			binary.BigEndian.PutUint32(hdr[4:8], uint32(n))
			body = compressed[:n]
		}
		if _, err := q.writeF.Write(hdr); err != nil {
			return EnqueueResult{}, errors.Wrap(err, "queue: write spill header")
		}
		if _, err := q.writeF.Write(body); err != nil {
			return EnqueueResult{}, errors.Wrap(err, "queue: write payload")
		}
	}
	return EnqueueResult{Queued: len(payloads)}, nil
}

func (q *FileQueue) Read() (Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	hdr := make([]byte, spillHeaderSize)
	if _, err := io.ReadFull(q.reader, hdr); err != nil {
		return Handle{}, errors.Wrap(err, "queue: read spill header")
	}
	origLen := binary.BigEndian.Uint32(hdr[0:4])
	compLen := binary.BigEndian.Uint32(hdr[4:8])

	readLen := origLen
	if compLen > 0 {
		readLen = compLen
	}
	body := make([]byte, readLen)
	if _, err := io.ReadFull(q.reader, body); err != nil {
		return Handle{}, errors.Wrap(err, "queue: read payload")
	}

	payload := body
	if compLen > 0 {
		payload = make([]byte, origLen)
		if _, err := lz4.UncompressBlock(body, payload); err != nil {
			return Handle{}, errors.Wrap(err, "queue: lz4 uncompress")
		}
	}

	q.offset += int64(spillHeaderSize) + int64(len(body))
	return Handle{ProviderHandle: q.path, Payload: payload}, nil
}

// Done persists the read offset so the next process restart resumes
// after this message.
func (q *FileQueue) Done(Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.saveOffset()
}

func (q *FileQueue) Clear() (int, error) {
	return 0, errUnsupported("Clear", "file")
}

func (q *FileQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	werr := q.writeF.Close()
	rerr := q.readF.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

var _ Queue = (*FileQueue)(nil)
