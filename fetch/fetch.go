// Package fetch implements the Data Fetcher: for a given coord, issue
// one concurrent query per configured layer against a rotating pool of
// databases, and assemble a feature bundle.
package fetch

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ducdk90/tilequeue/format"
	"github.com/ducdk90/tilequeue/tile"
)

// Layer is a configured layer descriptor's query-execution contract;
// the query text itself and geometry post-processing are supplied by
// the embedding deployment — Query is the seam this package calls
// through.
type Layer struct {
	Name string
	// Query runs this layer's query for coord against db and returns
	// decoded features. Implementations live outside this package;
	// tests supply fixtures.
	Query func(ctx context.Context, db *sql.DB, c tile.Coord) ([]format.Feature, error)
}

// Pool holds one *sql.DB per configured dbname, round-robined across
// concurrent query tasks.
type Pool struct {
	dbs []*sql.DB
}

// NewPool opens one connection pool per dsn, sizing each according to
// the configured simultaneous-query-set limit.
func NewPool(driverName string, dsns []string, maxOpenPerDB int) (*Pool, error) {
	dbs := make([]*sql.DB, 0, len(dsns))
	for _, dsn := range dsns {
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			for _, opened := range dbs {
				opened.Close()
			}
			return nil, errors.Wrapf(err, "fetch: open pool for dsn")
		}
		db.SetMaxOpenConns(maxOpenPerDB)
		db.SetMaxIdleConns(maxOpenPerDB)
		dbs = append(dbs, db)
	}
	return &Pool{dbs: dbs}, nil
}

func (p *Pool) Close() error {
	var first error
	for _, db := range p.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// slot rotates pool slots across concurrent query tasks. An empty pool
// yields a nil *sql.DB.
func (p *Pool) slot(i int) *sql.DB {
	if len(p.dbs) == 0 {
		return nil
	}
	return p.dbs[i%len(p.dbs)]
}

// Fetcher issues the per-coord fan-out of concurrent layer queries.
type Fetcher struct {
	Pool   *Pool
	Layers []Layer
}

func NewFetcher(pool *Pool, layers []Layer) *Fetcher {
	return &Fetcher{Pool: pool, Layers: layers}
}

// Bundle maps layer name to its decoded features for one coord.
type Bundle map[string][]format.Feature

// Fetch spawns len(Layers) concurrent query tasks across rotating pool
// slots, awaits all, and assembles the bundle. On any query failure
// the whole fetch fails and no bundle is returned — the caller must
// not emit a formatted artifact nor ack the originating message.
func (f *Fetcher) Fetch(ctx context.Context, c tile.Coord) (Bundle, error) {
	bundle := make(Bundle, len(f.Layers))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, layer := range f.Layers {
		i, layer := i, layer
		db := f.Pool.slot(i)
		g.Go(func() error {
			features, err := layer.Query(gctx, db, c)
			if err != nil {
				return errors.Wrapf(err, "fetch: layer %q for coord %s", layer.Name, c)
			}
			mu.Lock()
			bundle[layer.Name] = features
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}
