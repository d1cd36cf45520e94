// Package format is the output encoder registry contract. The
// encoders themselves (PBF, GeoJSON, TopoJSON, ...) are supplied by
// the embedding deployment — this package only defines what an
// encoder advertises and how the CPU Formatter invokes one.
package format

import (
	"io"
)

// Bounds is a tile's extent in the projected (e.g. spherical mercator)
// coordinate space the encoder writes geometry in.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// FeatureLayers is the per-tile feature bundle: layer name to its
// ordered features, each an opaque geometry+attributes value (the
// geometry post-processing pipeline is out of scope here).
type FeatureLayers map[string][]Feature

type Feature struct {
	Geometry   any
	Properties map[string]any
}

// DefaultExtents is the vector-tile encoder's default tile extent.
const DefaultExtents = 4096

// Format is what one output format advertises and does.
type Format struct {
	Extension string
	MIME      string
	// Encode writes one tile's features in this format. extents
	// defaults to DefaultExtents when the caller passes 0.
	Encode func(w io.Writer, layers FeatureLayers, bounds Bounds, extents int) error
}

// Registry is the fixed list of configured output formats, keyed by
// extension, loaded at startup.
type Registry map[string]Format

func (r Registry) Get(ext string) (Format, bool) {
	f, ok := r[ext]
	return f, ok
}

// EncodeAll runs every registered format against one coord's feature
// bundle, invoked by the CPU Formatter pool (pipeline package) once
// per coord.
func (r Registry) EncodeAll(layers FeatureLayers, bounds Bounds) (map[string][]byte, error) {
	out := make(map[string][]byte, len(r))
	for ext, f := range r {
		extents := DefaultExtents
		buf := &writeBuffer{}
		if err := f.Encode(buf, layers, bounds, extents); err != nil {
			return nil, err
		}
		out[ext] = buf.Bytes()
	}
	return out, nil
}

// writeBuffer avoids pulling in bytes.Buffer just for Bytes(); kept
// local since this package otherwise has no byte-slice dependency.
type writeBuffer struct{ b []byte }

func (w *writeBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
func (w *writeBuffer) Bytes() []byte { return w.b }
