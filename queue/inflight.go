package queue

import (
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

// InFlightTracker is the side in-flight set: the cloud-queue back-end
// consults it to avoid re-enqueueing a coord that is currently being
// processed. Backed by buntdb, an embedded ordered key-value store,
// standing in for a network-hosted cache in this single-binary
// deployment (see SPEC_FULL.md §4.4).
type InFlightTracker struct {
	db   *buntdb.DB
	name string
	ttl  time.Duration
}

func NewInFlightTracker(db *buntdb.DB, queueName string, ttl time.Duration) *InFlightTracker {
	return &InFlightTracker{db: db, name: queueName, ttl: ttl}
}

func (t *InFlightTracker) key(payloadKey string) string {
	return fmt.Sprintf("inflight:%s:%s", t.name, payloadKey)
}

// Mark records payloadKey as in flight for the tracker's TTL.
func (t *InFlightTracker) Mark(payloadKey string) error {
	return t.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(t.key(payloadKey), "1", &buntdb.SetOptions{Expires: true, TTL: t.ttl})
		return err
	})
}

// Clear removes payloadKey from the in-flight set (called from Done).
func (t *InFlightTracker) Clear(payloadKey string) error {
	return t.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(t.key(payloadKey))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

// InFlight reports whether payloadKey is currently marked in flight.
func (t *InFlightTracker) InFlight(payloadKey string) bool {
	var found bool
	_ = t.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(t.key(payloadKey))
		found = err == nil
		return nil
	})
	return found
}

// Count is a best-effort count of entries currently in flight for this
// queue name; callers must not use this for correctness, only for
// observability.
func (t *InFlightTracker) Count() int {
	n := 0
	prefix := fmt.Sprintf("inflight:%s:", t.name)
	_ = t.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(_, _ string) bool {
			n++
			return true
		})
	})
	return n
}
