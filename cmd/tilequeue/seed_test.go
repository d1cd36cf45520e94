package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMetroExtracts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metro.json")
	body := `[
		{"city": "portland", "min_lon": -122.7, "min_lat": 45.5, "max_lon": -122.6, "max_lat": 45.6},
		{"city": "vancouver", "min_lon": -123.1, "min_lat": 49.2, "max_lon": -123.0, "max_lat": 49.3}
	]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	extracts, err := loadMetroExtracts(path)
	if err != nil {
		t.Fatalf("loadMetroExtracts: %v", err)
	}
	if len(extracts) != 2 {
		t.Fatalf("loadMetroExtracts returned %d extracts, want 2", len(extracts))
	}
	if extracts[0].City != "portland" || extracts[0].BBox.MinLon != -122.7 {
		t.Fatalf("extracts[0] = %+v, unexpected values", extracts[0])
	}
	if extracts[1].City != "vancouver" || extracts[1].BBox.MaxLat != 49.3 {
		t.Fatalf("extracts[1] = %+v, unexpected values", extracts[1])
	}
}

func TestLoadMetroExtractsRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metro.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadMetroExtracts(path); err == nil {
		t.Fatal("expected an error for a malformed document")
	}
}

func TestLoadTopTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top_tiles.json")
	if err := os.WriteFile(path, []byte(`["12/656/1582", "12/656/1583"]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	coords, err := loadTopTiles(path)
	if err != nil {
		t.Fatalf("loadTopTiles: %v", err)
	}
	if len(coords) != 2 {
		t.Fatalf("loadTopTiles returned %d coords, want 2", len(coords))
	}
	if coords[0].String() != "12/656/1582" {
		t.Fatalf("coords[0] = %s, want 12/656/1582", coords[0])
	}
}

func TestLoadTopTilesRejectsMalformedEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top_tiles.json")
	if err := os.WriteFile(path, []byte(`["not-a-coord"]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadTopTiles(path); err == nil {
		t.Fatal("expected an error for a malformed top-tile entry")
	}
}
