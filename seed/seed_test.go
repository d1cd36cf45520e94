package seed

import (
	"testing"

	"github.com/ducdk90/tilequeue/tile"
)

func drain(ch <-chan tile.Coord) []tile.Coord {
	var out []tile.Coord
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestGenerateFlatZoomRange(t *testing.T) {
	coords := drain(Generate(Config{FlatZoomRange: &ZoomRange{Z0: 2, Z1: 2}}))
	want := 1 << 2 * (1 << 2)
	if len(coords) != want {
		t.Fatalf("Generate(flat z2) yielded %d coords, want %d", len(coords), want)
	}
}

func TestGenerateDedupesAcrossSources(t *testing.T) {
	shared := tile.Pack(3, 3, 3) // also inside the custom bbox at z3 (x,y in 3..4)
	cfg := Config{
		TopTiles:         []tile.Coord{shared},
		TopTileZoomRange: ZoomRange{Z0: 0, Z1: 5},
		CustomBBoxes:     []BBox{{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}},
		CustomZoomRange:  ZoomRange{Z0: 3, Z1: 3},
	}
	coords := drain(Generate(cfg))

	seen := make(map[tile.Coord]int)
	for _, c := range coords {
		seen[c]++
	}
	for c, n := range seen {
		if n != 1 {
			t.Fatalf("coord %s emitted %d times, want 1 (dedup failure)", c, n)
		}
	}
	if seen[shared] != 1 {
		t.Fatal("expected the shared top-tile coord to be emitted exactly once")
	}
}

func TestGenerateTopTilesRespectsZoomRange(t *testing.T) {
	inRange := tile.Pack(5, 1, 1)
	outOfRange := tile.Pack(9, 1, 1)
	cfg := Config{
		TopTiles:         []tile.Coord{inRange, outOfRange},
		TopTileZoomRange: ZoomRange{Z0: 0, Z1: 6},
	}
	coords := drain(Generate(cfg))
	if len(coords) != 1 || coords[0] != inRange {
		t.Fatalf("Generate(top-tiles) = %v, want only %s", coords, inRange)
	}
}

func TestGenerateMetroExtractFiltersByCityAllowlist(t *testing.T) {
	cfg := Config{
		MetroExtracts: []MetroExtract{
			{City: "portland", BBox: BBox{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}},
			{City: "vancouver", BBox: BBox{MinLon: -123.1, MinLat: 49.2, MaxLon: -123.0, MaxLat: 49.3}},
		},
		MetroZoomRange: ZoomRange{Z0: 2, Z1: 2},
		CityAllowlist:  map[string]bool{"portland": true},
	}
	coords := drain(Generate(cfg))
	if len(coords) == 0 {
		t.Fatal("expected coords from the allowlisted city")
	}

	var onlyVancouver []tile.Coord
	for c := range Generate(Config{
		MetroExtracts: []MetroExtract{
			{City: "vancouver", BBox: BBox{MinLon: -123.1, MinLat: 49.2, MaxLon: -123.0, MaxLat: 49.3}},
		},
		MetroZoomRange: ZoomRange{Z0: 2, Z1: 2},
	}) {
		onlyVancouver = append(onlyVancouver, c)
	}
	for _, c := range coords {
		for _, v := range onlyVancouver {
			if c == v {
				t.Fatalf("vancouver coord %s leaked into a portland-only allowlist result", c)
			}
		}
	}
}

func TestGenerateEmptyConfigYieldsNothing(t *testing.T) {
	coords := drain(Generate(Config{}))
	if len(coords) != 0 {
		t.Fatalf("Generate(empty config) yielded %d coords, want 0", len(coords))
	}
}
