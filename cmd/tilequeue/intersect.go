package main

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/internal/nlog"
	"github.com/ducdk90/tilequeue/rawr"
	"github.com/ducdk90/tilequeue/tile"
	"github.com/ducdk90/tilequeue/toi"
)

// maxExpiredTileFiles caps how many expired-tile files one invocation
// consumes, bounding memory use and keeping progress moving steadily
// rather than in large bursts.
const maxExpiredTileFiles = 20

var intersectCommand = &cli.Command{
	Name:  "intersect",
	Usage: "intersect every file in intersect.expired_tiles_location against the tiles-of-interest set, enqueue survivors, and remove consumed files",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		if cfg.Intersect.ExpiredTilesLocation == "" {
			return errors.New("intersect: intersect.expired_tiles_location is not configured")
		}

		paths, err := expiredTileFiles(cfg.Intersect.ExpiredTilesLocation)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			nlog.Infof("intersect: no expired tile files found, terminating")
			return nil
		}
		nlog.Infof("intersect: will process %d expired tile files", len(paths))

		expired := tile.Set{}
		for _, p := range paths {
			if err := readExpiredFile(p, expired); err != nil {
				return err
			}
		}
		nlog.Infof("intersect: %d unique expired tiles read to process", len(expired))

		backend, err := buildStore(c.Context, cfg)
		if err != nil {
			return err
		}
		toiSet, err := toi.NewSource(backend, cfg.Cache.TOIKey).Get()
		if err != nil {
			return err
		}

		survivorsCh, metrics := tile.ExplodeAndIntersect(expired, toiSet, cfg.Intersect.ZoomFloor)
		var survivors []tile.Coord
		for coord := range survivorsCh {
			survivors = append(survivors, coord)
		}

		q, err := buildQueue(c.Context, cfg)
		if err != nil {
			return err
		}
		if err := rawr.EnqueueAll(q, survivors); err != nil {
			return errors.Wrap(err, "intersect: enqueue survivors")
		}

		for _, p := range paths {
			if err := os.Remove(p); err != nil {
				return errors.Wrapf(err, "intersect: remove %s", p)
			}
			nlog.Infof("intersect: removed %s", p)
		}

		nlog.Infof("intersect: %d survivors out of %d candidates (toi size %d) enqueued", len(survivors), metrics.Candidate, metrics.ToiSize)
		return nil
	},
}

// expiredTileFiles lists, sorts, and caps the expired-tile files due
// for processing in one invocation.
func expiredTileFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "intersect: read %s", dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) > maxExpiredTileFiles {
		names = names[:maxExpiredTileFiles]
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// readExpiredFile parses one expired-tiles file into set, one coord
// per line as z/x/y; blank lines are skipped, malformed lines are
// logged and skipped rather than failing the whole run.
func readExpiredFile(path string, set tile.Set) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "intersect: open %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		coord, err := parseZXY(line)
		if err != nil {
			nlog.Warnf("intersect: %s: malformed line %q: %v", path, line, err)
			continue
		}
		set.Add(coord)
	}
	return sc.Err()
}

// parseZXY parses the "z/x/y" coordinate wire format shared by the
// expired-tiles file and the top-tiles seed document.
func parseZXY(s string) (tile.Coord, error) {
	fields := strings.Split(s, "/")
	if len(fields) != 3 {
		return 0, errors.Errorf("expected z/x/y, got %q", s)
	}
	var nums [3]uint64
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return 0, err
		}
		nums[i] = n
	}
	return tile.Pack(uint32(nums[0]), uint32(nums[1]), uint32(nums[2])), nil
}
