// Package toi loads and serializes the Tiles-of-Interest set: a gzipped
// stream of packed coordinate integers behind a blob-store key, with
// conditional (ETag) refresh so repeated consumers don't re-pull the
// whole set on every call.
package toi

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ducdk90/tilequeue/store"
	"github.com/ducdk90/tilequeue/tile"
)

// Load reads a gzip stream of big-endian uint64 packed coords.
func Load(r io.Reader) (tile.Set, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "toi: open gzip stream")
	}
	defer gz.Close()

	br := bufio.NewReader(gz)
	set := make(tile.Set)
	buf := make([]byte, 8)
	for {
		_, err := io.ReadFull(br, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "toi: truncated set")
		}
		set.Add(tile.Coord(binary.BigEndian.Uint64(buf)))
	}
	return set, nil
}

// Save writes a TOI set in the wire format Load expects.
func Save(w io.Writer, set tile.Set) error {
	gz := gzip.NewWriter(w)
	buf := make([]byte, 8)
	for c := range set {
		binary.BigEndian.PutUint64(buf, uint64(c))
		if _, err := gz.Write(buf); err != nil {
			return errors.Wrap(err, "toi: write set")
		}
	}
	return gz.Close()
}

// Source fetches the TOI set from a blob-store key, refreshing only
// when the stored ETag changes, caching the previously decoded set
// otherwise. Not safe for concurrent use without external locking.
type Source struct {
	backend store.Backend
	key     string

	etag string
	prev tile.Set
}

func NewSource(backend store.Backend, key string) *Source {
	return &Source{backend: backend, key: key}
}

// Get returns the current TOI set, fetching fresh bytes only if the
// backend reports a changed ETag (or none at all, e.g. directory
// backend, in which case every call refreshes).
func (s *Source) Get() (tile.Set, error) {
	body, etag, unchanged, err := s.backend.GetConditional(s.key, s.etag)
	if err != nil {
		return nil, errors.Wrapf(err, "toi: fetch %s", s.key)
	}
	if unchanged {
		if s.prev == nil {
			return nil, errors.New("toi: backend reported unchanged with no cached set")
		}
		return s.prev, nil
	}
	defer body.Close()

	set, err := Load(body)
	if err != nil {
		return nil, err
	}
	s.prev = set
	s.etag = etag
	return set, nil
}
