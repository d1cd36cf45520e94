package format

import (
	"fmt"
	"io"
	"testing"
)

func TestRegistryGet(t *testing.T) {
	reg := Registry{
		"json": {Extension: "json", MIME: "application/json", Encode: func(w io.Writer, _ FeatureLayers, _ Bounds, _ int) error {
			_, err := w.Write([]byte("{}"))
			return err
		}},
	}

	f, ok := reg.Get("json")
	if !ok {
		t.Fatal("expected json format to be registered")
	}
	if f.MIME != "application/json" {
		t.Fatalf("MIME = %q, want application/json", f.MIME)
	}

	if _, ok := reg.Get("pbf"); ok {
		t.Fatal("did not expect pbf to be registered")
	}
}

func TestRegistryEncodeAll(t *testing.T) {
	reg := Registry{
		"json": {Extension: "json", Encode: func(w io.Writer, layers FeatureLayers, _ Bounds, extents int) error {
			_, err := fmt.Fprintf(w, "layers=%d extents=%d", len(layers), extents)
			return err
		}},
		"text": {Extension: "text", Encode: func(w io.Writer, layers FeatureLayers, _ Bounds, _ int) error {
			_, err := fmt.Fprintf(w, "layers=%d", len(layers))
			return err
		}},
	}

	layers := FeatureLayers{"roads": []Feature{{Geometry: "LINESTRING"}}}
	out, err := reg.EncodeAll(layers, Bounds{})
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("EncodeAll returned %d formats, want 2", len(out))
	}
	if string(out["json"]) != fmt.Sprintf("layers=1 extents=%d", DefaultExtents) {
		t.Fatalf("json output = %q", out["json"])
	}
	if string(out["text"]) != "layers=1" {
		t.Fatalf("text output = %q", out["text"])
	}
}

func TestRegistryEncodeAllPropagatesError(t *testing.T) {
	wantErr := fmt.Errorf("boom")
	reg := Registry{
		"json": {Encode: func(io.Writer, FeatureLayers, Bounds, int) error { return wantErr }},
	}
	if _, err := reg.EncodeAll(nil, Bounds{}); err != wantErr {
		t.Fatalf("EncodeAll err = %v, want %v", err, wantErr)
	}
}
