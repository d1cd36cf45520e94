package store

import (
	"io"
	"path"

	"github.com/colinmarc/hdfs/v2"
	"github.com/pkg/errors"
)

// HdfsBackend writes artifacts to an HDFS cluster fronting the blob
// tier on-prem, where neither S3 nor Azure is available.
type HdfsBackend struct {
	Client     *hdfs.Client
	Root       string
	MaxRetries int
}

func NewHdfsBackend(client *hdfs.Client, root string, maxRetries int) *HdfsBackend {
	return &HdfsBackend{Client: client, Root: root, MaxRetries: maxRetries}
}

func (h *HdfsBackend) path(key string) string {
	return path.Join(h.Root, key)
}

func (h *HdfsBackend) Put(key string, body []byte, _ bool) error {
	p := h.path(key)
	var lastErr error
	for attempt := 0; attempt <= h.MaxRetries; attempt++ {
		if err := h.Client.MkdirAll(path.Dir(p), 0o755); err != nil {
			lastErr = err
			continue
		}
		// HDFS has no in-place overwrite semantics we rely on; remove
		// any stale object first so retries and re-processing stay
		// idempotent.
		_ = h.Client.Remove(p)
		w, err := h.Client.Create(p)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err := w.Write(body); err != nil {
			w.Close()
			lastErr = err
			continue
		}
		if err := w.Close(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return errors.Wrapf(lastErr, "store: hdfs put %s after %d attempts", key, h.MaxRetries+1)
}

func (h *HdfsBackend) Get(key string) (io.ReadCloser, error) {
	f, err := h.Client.Open(h.path(key))
	if err != nil {
		return nil, errors.Wrapf(err, "store: hdfs get %s", key)
	}
	return f, nil
}

// GetConditional: HDFS exposes an mtime, not an ETag; this backend
// always refreshes, like the directory backend.
func (h *HdfsBackend) GetConditional(key, _ string) (io.ReadCloser, string, bool, error) {
	body, err := h.Get(key)
	if err != nil {
		return nil, "", false, err
	}
	return body, "", false, nil
}

func (h *HdfsBackend) Head(key string) (int64, error) {
	fi, err := h.Client.Stat(h.path(key))
	if err != nil {
		return 0, errors.Wrapf(err, "store: hdfs head %s", key)
	}
	return fi.Size(), nil
}
