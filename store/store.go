// Package store implements the blob sink: the tile/RAWR key schema and
// the pluggable backend contract (directory, S3, Azure, HDFS) behind
// it.
package store

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ducdk90/tilequeue/tile"
)

// Artifact is one formatted tile ready to be written to the blob
// store: (coord, format tag, bytes).
type Artifact struct {
	Coord  tile.Coord
	Format string // file extension, e.g. "pbf", "json"
	Bytes  []byte
}

// Key builds the tile artifact key: <prefix>/<fmt>/<z>/<x>/<y>.<ext>
func Key(prefix, ext string, c tile.Coord) string {
	z, x, y := c.Unpack()
	return fmt.Sprintf("%s/%s/%d/%d/%d.%s", prefix, ext, z, x, y, ext)
}

// RawrKey builds the RAWR intermediate key:
// <prefix>/<hash8>/<z>/<x>/<y><suffix>, where hash8 shards the prefix
// for uniform key distribution — the first 8 hex digits of the MD5 of
// the un-sharded relative path.
func RawrKey(prefix string, c tile.Coord, suffix string) string {
	z, x, y := c.Unpack()
	relPath := fmt.Sprintf("%d/%d/%d%s", z, x, y, suffix)
	return fmt.Sprintf("%s/%s/%s", prefix, Hash8(relPath), relPath)
}

// Hash8 is the first 8 hex digits of the MD5 sum of s.
func Hash8(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// Backend is the blob-store contract every store type implements.
type Backend interface {
	// Put writes body to key, retrying transient errors up to the
	// backend's configured cap. reducedRedundancy is advisory.
	Put(key string, body []byte, reducedRedundancy bool) error
	// Get reads the full object at key.
	Get(key string) (io.ReadCloser, error)
	// GetConditional reads key unless etag matches the backend's
	// current ETag for it, in which case unchanged is true and body is
	// nil. Backends without ETag support (e.g. directory) always
	// report unchanged=false.
	GetConditional(key, etag string) (body io.ReadCloser, newEtag string, unchanged bool, err error)
	// Head reports the object's size in bytes without fetching it.
	Head(key string) (size int64, err error)
}
