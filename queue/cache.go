package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/teris-io/shortid"
	"github.com/tidwall/buntdb"
)

// CacheQueue is the distributed-cache-backed back-end: messages live
// as ordered keys in the cache's "list primitive". Backed by buntdb
// here (see SPEC_FULL.md §4.4 on why an embedded store stands in for a
// network cache in this single-binary deployment); InFlightTracker
// also takes a *buntdb.DB, so one database can back both.
type CacheQueue struct {
	db   *buntdb.DB
	name string

	mu       sync.Mutex
	seq      int64
	inFlight map[string]bool
}

func NewCacheQueue(db *buntdb.DB, name string) *CacheQueue {
	return &CacheQueue{db: db, name: name, inFlight: make(map[string]bool)}
}

func (q *CacheQueue) listKey(seq int64) string {
	return fmt.Sprintf("queue:%s:%020d", q.name, seq)
}

func (q *CacheQueue) Enqueue(payloads [][]byte) (EnqueueResult, error) {
	if len(payloads) > MaxBatch {
		return EnqueueResult{}, errors.Errorf("queue: batch of %d exceeds max %d", len(payloads), MaxBatch)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.db.Update(func(tx *buntdb.Tx) error {
		for _, p := range payloads {
			q.seq++
			id, _ := shortid.Generate()
			val := id + "\x00" + string(p)
			if _, _, err := tx.Set(q.listKey(q.seq), val, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return EnqueueResult{}, errors.Wrap(err, "queue: cache enqueue")
	}
	return EnqueueResult{Queued: len(payloads)}, nil
}

// Read pops the lowest-sequence visible message not already claimed by
// an earlier, still-unacked Read. The claim lives in an in-process map
// rather than the cache itself, so it is scoped to this *CacheQueue:
// Done clears the claim when it removes the key; there is no
// visibility-timeout redelivery in this back-end.
func (q *CacheQueue) Read() (Handle, error) {
	deadline := time.Now().Add(30 * time.Second)
	for {
		var key, val string
		q.mu.Lock()
		err := q.db.View(func(tx *buntdb.Tx) error {
			return tx.AscendKeys(fmt.Sprintf("queue:%s:*", q.name), func(k, v string) bool {
				if q.inFlight[k] {
					return true
				}
				key, val = k, v
				return false
			})
		})
		if err != nil {
			q.mu.Unlock()
			return Handle{}, errors.Wrap(err, "queue: cache scan")
		}
		if key != "" {
			q.inFlight[key] = true
			q.mu.Unlock()
			id := val
			payload := ""
			for i := 0; i < len(val); i++ {
				if val[i] == 0 {
					id = val[:i]
					payload = val[i+1:]
					break
				}
			}
			return Handle{ProviderHandle: id, Payload: []byte(payload)}, nil
		}
		q.mu.Unlock()
		if time.Now().After(deadline) {
			return Handle{}, errNoMessage
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (q *CacheQueue) Done(h Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.db.Update(func(tx *buntdb.Tx) error {
		var key string
		_ = tx.AscendKeys(fmt.Sprintf("queue:%s:*", q.name), func(k, v string) bool {
			if len(v) >= len(h.ProviderHandle) && v[:len(h.ProviderHandle)] == h.ProviderHandle {
				key = k
				return false
			}
			return true
		})
		if key == "" {
			return nil // idempotent: already gone
		}
		delete(q.inFlight, key)
		_, err := tx.Delete(key)
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

func (q *CacheQueue) Clear() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	err := q.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		_ = tx.AscendKeys(fmt.Sprintf("queue:%s:*", q.name), func(k, _ string) bool {
			keys = append(keys, k)
			return true
		})
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
			delete(q.inFlight, k)
			n++
		}
		return nil
	})
	return n, err
}

var _ Queue = (*CacheQueue)(nil)
