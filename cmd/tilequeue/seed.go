package main

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/rawr"
	"github.com/ducdk90/tilequeue/seed"
	"github.com/ducdk90/tilequeue/tile"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "generate the union of configured seed sources and enqueue them onto the input queue",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		seedCfg, err := buildSeedConfig(cfg)
		if err != nil {
			return err
		}

		var coords []tile.Coord
		for coord := range seed.Generate(seedCfg) {
			coords = append(coords, coord)
		}

		q, err := buildQueue(c.Context, cfg)
		if err != nil {
			return err
		}

		if err := rawr.EnqueueAll(q, coords); err != nil {
			return err
		}
		nlog.Infof("seed: %d tiles enqueued", len(coords))
		return nil
	},
}

// metroExtractDoc is one entry of a metro-extract or custom-bbox JSON
// document: a geographic bounding box, optionally named.
type metroExtractDoc struct {
	City   string  `json:"city"`
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// buildSeedConfig parses the configured seed document file paths into
// a seed.Config. The document formats are CLI-only plumbing (not part
// of the seed generator's algorithmic contract): metro-extract and
// custom-bbox documents are a JSON array of metroExtractDoc; top-tiles
// is a JSON array of "z/x/y" strings.
func buildSeedConfig(cfg *config.Config) (seed.Config, error) {
	var out seed.Config

	if cfg.Seed.ZoomStart != nil && cfg.Seed.ZoomUntil != nil {
		out.FlatZoomRange = &seed.ZoomRange{Z0: *cfg.Seed.ZoomStart, Z1: *cfg.Seed.ZoomUntil}
	}

	if cfg.Seed.MetroExtractPath != "" {
		extracts, err := loadMetroExtracts(cfg.Seed.MetroExtractPath)
		if err != nil {
			return out, err
		}
		out.MetroExtracts = extracts
		out.MetroZoomRange = seed.ZoomRange{Z0: 0, Z1: 16}
	}

	if cfg.Seed.TopTilesPath != "" {
		coords, err := loadTopTiles(cfg.Seed.TopTilesPath)
		if err != nil {
			return out, err
		}
		out.TopTiles = coords
		out.TopTileZoomRange = seed.ZoomRange{Z0: 0, Z1: 16}
	}

	if cfg.Seed.CustomBBoxPath != "" {
		extracts, err := loadMetroExtracts(cfg.Seed.CustomBBoxPath)
		if err != nil {
			return out, err
		}
		for _, m := range extracts {
			out.CustomBBoxes = append(out.CustomBBoxes, m.BBox)
		}
		out.CustomZoomRange = seed.ZoomRange{Z0: 0, Z1: 16}
	}

	return out, nil
}

// loadMetroExtracts decodes a metro-extract/custom-bbox JSON document:
// an array of {city, min_lon, min_lat, max_lon, max_lat} objects.
func loadMetroExtracts(path string) ([]seed.MetroExtract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "seed: open %s", path)
	}
	defer f.Close()

	var docs []metroExtractDoc
	if err := jsonAPI.NewDecoder(f).Decode(&docs); err != nil {
		return nil, errors.Wrapf(err, "seed: decode %s", path)
	}
	extracts := make([]seed.MetroExtract, len(docs))
	for i, d := range docs {
		extracts[i] = seed.MetroExtract{
			City: d.City,
			BBox: seed.BBox{MinLon: d.MinLon, MinLat: d.MinLat, MaxLon: d.MaxLon, MaxLat: d.MaxLat},
		}
	}
	return extracts, nil
}

// loadTopTiles decodes a top-tiles JSON document: an array of "z/x/y"
// strings naming already-packed coords.
func loadTopTiles(path string) ([]tile.Coord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "seed: open top-tiles %s", path)
	}
	defer f.Close()

	var zxy []string
	if err := jsonAPI.NewDecoder(f).Decode(&zxy); err != nil {
		return nil, errors.Wrapf(err, "seed: decode %s", path)
	}
	coords := make([]tile.Coord, 0, len(zxy))
	for _, s := range zxy {
		c, err := parseZXY(s)
		if err != nil {
			return nil, errors.Wrapf(err, "seed: malformed top-tile %q", s)
		}
		coords = append(coords, c)
	}
	return coords, nil
}
