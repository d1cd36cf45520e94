package rawr

import (
	"archive/zip"
	"bytes"
	"time"

	"github.com/pkg/errors"

	"github.com/ducdk90/tilequeue/store"
	"github.com/ducdk90/tilequeue/tile"
)

// FormattedData is one named entry of a raw-tile's output (e.g.
// "geojson", "text").
type FormattedData struct {
	Name string
	Data []byte
}

// Tile is the raw-tile generator's output for one ancestor coord.
type Tile struct {
	Coord          tile.Coord
	AllFormattedData []FormattedData
}

// MakeZipPayload archives a raw tile's formatted data, one DEFLATE
// entry per named format, with a fixed or current GMT timestamp.
func MakeZipPayload(t Tile, when time.Time) ([]byte, error) {
	if when.IsZero() {
		when = time.Now().UTC()
	}
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, fd := range t.AllFormattedData {
		hdr := &zip.FileHeader{Name: fd.Name, Method: zip.Deflate}
		hdr.Modified = when
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, errors.Wrapf(err, "rawr: create zip entry %s", fd.Name)
		}
		if _, err := w.Write(fd.Data); err != nil {
			return nil, errors.Wrapf(err, "rawr: write zip entry %s", fd.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "rawr: close zip")
	}
	return buf.Bytes(), nil
}

// WriteToStore builds the zip payload and writes it to the blob store
// at the RAWR-intermediate key schema.
func WriteToStore(backend store.Backend, t Tile, prefix, suffix string, reducedRedundancy bool) error {
	payload, err := MakeZipPayload(t, time.Time{})
	if err != nil {
		return err
	}
	key := store.RawrKey(prefix, t.Coord, suffix)
	return backend.Put(key, payload, reducedRedundancy)
}
