package toi

import (
	"bytes"
	"io"
	"testing"

	"github.com/ducdk90/tilequeue/tile"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	set := tile.NewSet(tile.Pack(1, 0, 0), tile.Pack(5, 3, 2), tile.Pack(10, 100, 200))

	var buf bytes.Buffer
	if err := Save(&buf, set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(set) {
		t.Fatalf("Load returned %d coords, want %d", len(got), len(set))
	}
	for c := range set {
		if !got.Has(c) {
			t.Fatalf("round-tripped set missing %s", c)
		}
	}
}

func TestLoadEmptySet(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, tile.NewSet()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(got))
	}
}

// fakeBackend is a minimal in-memory store.Backend fake for exercising
// Source's ETag-conditional refresh without a real blob backend.
type fakeBackend struct {
	body []byte
	etag string
	gets int
}

func (f *fakeBackend) Put(string, []byte, bool) error { return nil }
func (f *fakeBackend) Get(string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.body)), nil
}
func (f *fakeBackend) GetConditional(_, etag string) (io.ReadCloser, string, bool, error) {
	if etag == f.etag && etag != "" {
		return nil, f.etag, true, nil
	}
	f.gets++
	return io.NopCloser(bytes.NewReader(f.body)), f.etag, false, nil
}
func (f *fakeBackend) Head(string) (int64, error) { return int64(len(f.body)), nil }

func TestSourceCachesOnUnchangedEtag(t *testing.T) {
	var buf bytes.Buffer
	set := tile.NewSet(tile.Pack(1, 0, 0))
	if err := Save(&buf, set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backend := &fakeBackend{body: buf.Bytes(), etag: "v1"}
	src := NewSource(backend, "toi.gz")

	first, err := src.Get()
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first Get returned %d coords, want 1", len(first))
	}

	second, err := src.Get()
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second Get returned %d coords, want 1", len(second))
	}
	if backend.gets != 1 {
		t.Fatalf("backend.gets = %d, want 1 (second Get should hit the unchanged-etag cache path)", backend.gets)
	}
}
