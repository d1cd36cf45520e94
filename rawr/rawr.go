// Package rawr implements the RAWR grouping/dispatch/consume flow:
// bucket coords by a common ancestor zoom, batch-send payloads, and on
// the consumer side generate+intersect+requeue.
package rawr

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ducdk90/tilequeue/queue"
	"github.com/ducdk90/tilequeue/tile"
)

// ErrAncestorMismatch is a fail-fast error: an invalid RAWR payload
// whose coords don't share a common ancestor is a programming bug, not
// a transient condition.
var ErrAncestorMismatch = errors.New("rawr: coords do not share a common ancestor at group-by zoom")

// MarshalPayload renders coords as the comma-separated z/x/y wire
// format.
func MarshalPayload(coords []tile.Coord) []byte {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = c.String()
	}
	return []byte(strings.Join(parts, ","))
}

// UnmarshalPayload reverses MarshalPayload.
func UnmarshalPayload(payload []byte) ([]tile.Coord, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	coords := make([]tile.Coord, 0, len(parts))
	for _, p := range parts {
		c, err := parseCoord(p)
		if err != nil {
			return nil, errors.Wrapf(err, "rawr: malformed coord %q", p)
		}
		coords = append(coords, c)
	}
	return coords, nil
}

func parseCoord(s string) (tile.Coord, error) {
	fields := strings.Split(strings.TrimSpace(s), "/")
	if len(fields) != 3 {
		return 0, errors.Errorf("expected z/x/y, got %q", s)
	}
	var nums [3]uint64
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return 0, err
		}
		nums[i] = n
	}
	return tile.Pack(uint32(nums[0]), uint32(nums[1]), uint32(nums[2])), nil
}

// CommonParent returns the ancestor shared by every coord at
// parentZoom, asserting they all agree.
func CommonParent(coords []tile.Coord, parentZoom uint32) (tile.Coord, error) {
	if len(coords) == 0 {
		return 0, errors.New("rawr: no coords")
	}
	var parent tile.Coord
	for i, c := range coords {
		if c.Zoom() < parentZoom {
			return 0, errors.Wrapf(ErrAncestorMismatch, "coord %s is below group-by zoom %d", c, parentZoom)
		}
		p := c.Ancestor(parentZoom)
		if i == 0 {
			parent = p
		} else if p != parent {
			return 0, errors.Wrapf(ErrAncestorMismatch, "%s vs %s", p, parent)
		}
	}
	return parent, nil
}

// Dispatch partitions coords by their ancestor at groupByZoom and
// sends one payload per bucket, batched in groups of up to
// queue.MaxBatch sends per call.
func Dispatch(q queue.Queue, groupByZoom uint32, coords []tile.Coord) (nCoords, nPayloads, nSendCalls int, err error) {
	buckets := make(map[tile.Coord][]tile.Coord)
	for _, c := range coords {
		if c.Zoom() < groupByZoom {
			return 0, 0, 0, errors.Errorf("rawr: coord %s below group-by zoom %d", c, groupByZoom)
		}
		parent := c.Ancestor(groupByZoom)
		buckets[parent] = append(buckets[parent], c)
	}

	payloads := make([][]byte, 0, len(buckets))
	for _, bucket := range buckets {
		payloads = append(payloads, MarshalPayload(bucket))
		nCoords += len(bucket)
	}
	nPayloads = len(payloads)

	for i := 0; i < len(payloads); i += queue.MaxBatch {
		end := i + queue.MaxBatch
		if end > len(payloads) {
			end = len(payloads)
		}
		if _, err := q.Enqueue(payloads[i:end]); err != nil {
			return nCoords, nPayloads, nSendCalls, errors.Wrap(err, "rawr: dispatch enqueue")
		}
		nSendCalls++
	}
	return nCoords, nPayloads, nSendCalls, nil
}
