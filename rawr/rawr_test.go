package rawr

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/ducdk90/tilequeue/queue"
	"github.com/ducdk90/tilequeue/tile"
)

func TestMarshalUnmarshalPayloadRoundTrip(t *testing.T) {
	coords := []tile.Coord{tile.Pack(5, 1, 2), tile.Pack(5, 3, 4)}
	payload := MarshalPayload(coords)

	got, err := UnmarshalPayload(payload)
	if err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if len(got) != len(coords) {
		t.Fatalf("got %d coords, want %d", len(got), len(coords))
	}
	for i, c := range coords {
		if got[i] != c {
			t.Fatalf("coord %d = %s, want %s", i, got[i], c)
		}
	}
}

func TestUnmarshalPayloadEmpty(t *testing.T) {
	got, err := UnmarshalPayload([]byte(""))
	if err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil coords for empty payload, got %v", got)
	}
}

func TestUnmarshalPayloadMalformed(t *testing.T) {
	if _, err := UnmarshalPayload([]byte("not-a-coord")); err == nil {
		t.Fatal("expected an error unmarshalling a malformed coord")
	}
}

func TestCommonParent(t *testing.T) {
	a := tile.Pack(6, 4, 4)
	b := tile.Pack(6, 5, 4)
	parent, err := CommonParent([]tile.Coord{a, b}, 5)
	if err != nil {
		t.Fatalf("CommonParent: %v", err)
	}
	if parent != a.Ancestor(5) {
		t.Fatalf("CommonParent() = %s, want %s", parent, a.Ancestor(5))
	}
}

func TestCommonParentMismatch(t *testing.T) {
	a := tile.Pack(6, 0, 0)
	b := tile.Pack(6, 60, 60)
	if _, err := CommonParent([]tile.Coord{a, b}, 5); err == nil {
		t.Fatal("expected ErrAncestorMismatch for coords without a shared ancestor")
	}
}

func TestDispatchGroupsByAncestorAndBatches(t *testing.T) {
	q := queue.NewMemoryQueue()

	a1 := tile.Pack(6, 4, 4)
	a2 := tile.Pack(6, 5, 4) // shares parent with a1 at zoom 5
	b1 := tile.Pack(6, 40, 40)

	nCoords, nPayloads, nSends, err := Dispatch(q, 5, []tile.Coord{a1, a2, b1})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if nCoords != 3 {
		t.Fatalf("nCoords = %d, want 3", nCoords)
	}
	if nPayloads != 2 {
		t.Fatalf("nPayloads = %d, want 2 (two distinct ancestor buckets)", nPayloads)
	}
	if nSends != 1 {
		t.Fatalf("nSends = %d, want 1 (both payloads fit in one batch)", nSends)
	}
}

func TestDispatchRejectsCoordBelowGroupByZoom(t *testing.T) {
	q := queue.NewMemoryQueue()
	shallow := tile.Pack(2, 0, 0)
	if _, _, _, err := Dispatch(q, 5, []tile.Coord{shallow}); err == nil {
		t.Fatal("expected an error for a coord below the group-by zoom")
	}
}

func TestEnqueueAllSendsOneCoordPerMessage(t *testing.T) {
	q := queue.NewMemoryQueue()
	coords := []tile.Coord{tile.Pack(5, 1, 1), tile.Pack(6, 2, 2), tile.Pack(7, 3, 3)}

	if err := EnqueueAll(q, coords); err != nil {
		t.Fatalf("EnqueueAll: %v", err)
	}

	for _, want := range coords {
		h, err := q.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got, err := UnmarshalPayload(h.Payload)
		if err != nil {
			t.Fatalf("UnmarshalPayload: %v", err)
		}
		if len(got) != 1 || got[0] != want {
			t.Fatalf("payload decoded to %v, want exactly [%s]", got, want)
		}
	}
}

func TestEnqueueAllBatchesAboveMaxBatch(t *testing.T) {
	q := queue.NewMemoryQueue()
	coords := make([]tile.Coord, queue.MaxBatch+1)
	for i := range coords {
		coords[i] = tile.Pack(10, uint32(i), uint32(i))
	}

	if err := EnqueueAll(q, coords); err != nil {
		t.Fatalf("EnqueueAll: %v", err)
	}
	n, err := q.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != len(coords) {
		t.Fatalf("Clear() = %d, want %d", n, len(coords))
	}
}

func TestMakeZipPayloadRoundTrip(t *testing.T) {
	tileVal := Tile{
		Coord: tile.Pack(5, 1, 1),
		AllFormattedData: []FormattedData{
			{Name: "geojson", Data: []byte(`{"type":"FeatureCollection"}`)},
			{Name: "text", Data: []byte("5/1/1")},
		},
	}

	payload, err := MakeZipPayload(tileVal, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MakeZipPayload: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("zip has %d entries, want 2", len(zr.File))
	}

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Method != zip.Deflate {
			t.Fatalf("entry %s method = %d, want Deflate", f.Name, f.Method)
		}
	}
	if !names["geojson"] || !names["text"] {
		t.Fatalf("unexpected entry names: %v", names)
	}
}
