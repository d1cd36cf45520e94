// Package seed implements the seed generator: a deduplicated lazy
// stream that is the union of up to four configurable sources.
package seed

import (
	"math"

	"github.com/ducdk90/tilequeue/tile"
)

// BBox is a geographic bounding box in lon/lat degrees.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// MetroExtract is source (b): a named city/region with a bounding box,
// filterable by name before its bounds are expanded into coords.
type MetroExtract struct {
	City string
	BBox BBox
}

// Config enumerates the four seed sources. Any subset may be
// populated; absent sources contribute nothing to the union.
type Config struct {
	// (a) flat zoom range, applied over the whole world.
	FlatZoomRange *ZoomRange

	// (b) metro-extract document: bounding boxes with their own zoom
	// range, optionally filtered by city name.
	MetroExtracts    []MetroExtract
	MetroZoomRange   ZoomRange
	CityAllowlist    map[string]bool // nil/empty means no filtering

	// (c) top-tiles document: already-packed coords, restricted to a
	// zoom range (coords outside it are dropped).
	TopTiles      []tile.Coord
	TopTileZoomRange ZoomRange

	// (d) explicit custom bounding boxes with their own zoom range.
	CustomBBoxes    []BBox
	CustomZoomRange ZoomRange
}

type ZoomRange struct {
	Z0, Z1 uint32
}

func inRange(z uint32, r ZoomRange) bool { return z >= r.Z0 && z <= r.Z1 }

// bboxToCoords expands a geographic bbox into packed coords across a
// zoom range using Web Mercator tile math. Left as a narrow, exact
// helper since the projection itself (not in scope of this package's
// algorithmic contribution) is otherwise identical across sources.
func bboxToCoords(b BBox, zr ZoomRange, emit func(tile.Coord)) {
	for z := zr.Z0; z <= zr.Z1; z++ {
		n := uint32(1) << z
		x0, y0 := lonLatToTile(b.MinLon, b.MaxLat, n)
		x1, y1 := lonLatToTile(b.MaxLon, b.MinLat, n)
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		if y1 < y0 {
			y0, y1 = y1, y0
		}
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				emit(tile.Pack(z, x, y))
			}
		}
	}
}

func lonLatToTile(lon, lat float64, n uint32) (x, y uint32) {
	const maxLat = 85.05112878
	if lat > maxLat {
		lat = maxLat
	}
	if lat < -maxLat {
		lat = -maxLat
	}
	fx := (lon + 180.0) / 360.0
	latRad := lat * math.Pi / 180.0
	fy := (1.0 - math.Log(math.Tan(math.Pi/4+latRad/2))/math.Pi) / 2.0
	x = clampTile(uint32(fx*float64(n)), n)
	y = clampTile(uint32(fy*float64(n)), n)
	return
}

func clampTile(v, n uint32) uint32 {
	if v >= n {
		return n - 1
	}
	return v
}

// Generate returns the deduplicated union of all configured sources as
// a lazy channel; memory cost is O(distinct coords emitted).
func Generate(cfg Config) <-chan tile.Coord {
	out := make(chan tile.Coord)
	go func() {
		defer close(out)
		seen := make(tile.Set)
		emit := func(c tile.Coord) {
			if seen.Has(c) {
				return
			}
			seen.Add(c)
			out <- c
		}

		if cfg.FlatZoomRange != nil {
			for c := range tile.Seed(cfg.FlatZoomRange.Z0, cfg.FlatZoomRange.Z1) {
				emit(c)
			}
		}

		for _, m := range cfg.MetroExtracts {
			if len(cfg.CityAllowlist) > 0 && !cfg.CityAllowlist[m.City] {
				continue
			}
			bboxToCoords(m.BBox, cfg.MetroZoomRange, emit)
		}

		for _, c := range cfg.TopTiles {
			if inRange(c.Zoom(), cfg.TopTileZoomRange) {
				emit(c)
			}
		}

		for _, b := range cfg.CustomBBoxes {
			bboxToCoords(b, cfg.CustomZoomRange, emit)
		}
	}()
	return out
}
