package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/rawr"
	"github.com/ducdk90/tilequeue/tile"
	"github.com/ducdk90/tilequeue/toi"
)

// renderableZoom is the deepest zoom the downstream pipeline renders;
// tiles of interest beyond it are never dispatched.
const renderableZoom = 18

var enqueueToiCommand = &cli.Command{
	Name:  "enqueue-tiles-of-interest",
	Usage: "enqueue every tile-of-interest coord with z <= 18 onto the input queue, bypassing the expiry intersection",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "toi-file", Usage: "path to a gzipped uint64 coord stream; defaults to the configured TOI backend"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		toiSet, err := loadToiSet(c, cfg)
		if err != nil {
			return err
		}

		var coords []tile.Coord
		for _, coord := range toiSet.Slice() {
			if coord.Zoom() <= renderableZoom {
				coords = append(coords, coord)
			}
		}

		q, err := buildQueue(c.Context, cfg)
		if err != nil {
			return err
		}

		if err := rawr.EnqueueAll(q, coords); err != nil {
			return err
		}
		nlog.Infof("enqueue-tiles-of-interest: enqueued %d of %d tiles of interest (z<=%d)", len(coords), len(toiSet), renderableZoom)
		return nil
	},
}

// loadToiSet reads the TOI set directly from a local file when
// --toi-file is given, otherwise through the configured store's
// conditional-refresh Source — the same path the RAWR consumer uses.
func loadToiSet(c *cli.Context, cfg *config.Config) (tile.Set, error) {
	if path := c.String("toi-file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "enqueue-tiles-of-interest: open %s", path)
		}
		defer f.Close()
		return toi.Load(f)
	}
	backend, err := buildStore(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	src := toi.NewSource(backend, cfg.Cache.TOIKey)
	return src.Get()
}
