package fetch

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ducdk90/tilequeue/format"
	"github.com/ducdk90/tilequeue/tile"
)

func TestFetchAssemblesBundleFromAllLayers(t *testing.T) {
	layers := []Layer{
		{Name: "roads", Query: func(context.Context, *sql.DB, tile.Coord) ([]format.Feature, error) {
			return []format.Feature{{Geometry: "road"}}, nil
		}},
		{Name: "water", Query: func(context.Context, *sql.DB, tile.Coord) ([]format.Feature, error) {
			return []format.Feature{{Geometry: "water-poly"}, {Geometry: "water-line"}}, nil
		}},
	}

	fetcher := NewFetcher(&Pool{}, layers)
	bundle, err := fetcher.Fetch(context.Background(), tile.Pack(10, 1, 1))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bundle) != 2 {
		t.Fatalf("bundle has %d layers, want 2", len(bundle))
	}
	if len(bundle["water"]) != 2 {
		t.Fatalf("water layer has %d features, want 2", len(bundle["water"]))
	}
}

func TestFetchFailsWholeBundleOnOneLayerError(t *testing.T) {
	layers := []Layer{
		{Name: "ok", Query: func(context.Context, *sql.DB, tile.Coord) ([]format.Feature, error) {
			return []format.Feature{{}}, nil
		}},
		{Name: "broken", Query: func(context.Context, *sql.DB, tile.Coord) ([]format.Feature, error) {
			return nil, sql.ErrNoRows
		}},
	}

	fetcher := NewFetcher(&Pool{}, layers)
	if _, err := fetcher.Fetch(context.Background(), tile.Pack(10, 1, 1)); err == nil {
		t.Fatal("expected an error when any layer query fails")
	}
}

func TestPoolSlotRotates(t *testing.T) {
	// slot() must not panic when indexing with i >= len(dbs); exercised
	// indirectly through a Pool with a non-empty dbs slice.
	pool := &Pool{dbs: []*sql.DB{{}, {}, {}}}
	seen := map[*sql.DB]bool{}
	for i := 0; i < 7; i++ {
		seen[pool.slot(i)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("slot() visited %d distinct dbs across 7 calls into a pool of 3, want 3", len(seen))
	}
}
