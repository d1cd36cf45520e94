package store

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// DirectoryBackend writes artifacts under a local (or NFS-mounted)
// root directory; used for local development and, through Walk, for
// the `tile-size` file-tree scan.
type DirectoryBackend struct {
	Root string
}

func NewDirectoryBackend(root string) *DirectoryBackend {
	return &DirectoryBackend{Root: root}
}

func (d *DirectoryBackend) path(key string) string {
	return filepath.Join(d.Root, filepath.FromSlash(key))
}

func (d *DirectoryBackend) Put(key string, body []byte, _ bool) error {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "store: mkdir for %s", key)
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return errors.Wrapf(err, "store: write %s", key)
	}
	return nil
}

func (d *DirectoryBackend) Get(key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		return nil, errors.Wrapf(err, "store: read %s", key)
	}
	return f, nil
}

// GetConditional: the directory backend has no ETag concept, so it
// always re-reads.
func (d *DirectoryBackend) GetConditional(key, _ string) (io.ReadCloser, string, bool, error) {
	body, err := d.Get(key)
	if err != nil {
		return nil, "", false, err
	}
	buf, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, "", false, err
	}
	return io.NopCloser(bytes.NewReader(buf)), "", false, nil
}

func (d *DirectoryBackend) Head(key string) (int64, error) {
	fi, err := os.Stat(d.path(key))
	if err != nil {
		return 0, errors.Wrapf(err, "store: head %s", key)
	}
	return fi.Size(), nil
}

// Walk lists every key under prefix, sorted, via godirwalk for
// low-allocation directory scans — used by the `tile-size` report to
// sample artifacts.
func (d *DirectoryBackend) Walk(prefix string) ([]string, error) {
	root := d.path(prefix)
	var keys []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(d.Root, path)
			if err != nil {
				return err
			}
			keys = append(keys, filepath.ToSlash(rel))
			return nil
		},
		Unsorted: false,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "store: walk %s", prefix)
	}
	return keys, nil
}
