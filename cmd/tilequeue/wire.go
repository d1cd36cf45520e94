// Package main is the tilequeue CLI: process, seed, drain, intersect,
// enqueue-tiles-of-interest, tile-size.
package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/colinmarc/hdfs/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/format"
	"github.com/ducdk90/tilequeue/queue"
	"github.com/ducdk90/tilequeue/store"
)

// buildQueue constructs the configured input-queue backend. The
// buntdb-backed cache backend opens its own on-disk database file
// named after the queue and does not expose it. The SQS backend is
// built without an InFlightTracker.
func buildQueue(ctx context.Context, cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "sqs":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "wire: load aws config")
		}
		client := sqs.NewFromConfig(awsCfg)
		return queue.NewSqsQueue(client, cfg.Queue.Name, 20), nil
	case "memory":
		return queue.NewMemoryQueue(), nil
	case "file":
		return queue.NewFileQueue(cfg.Queue.Name)
	case "stdout":
		return queue.NewStdoutQueue(os.Stdout), nil
	case "cache":
		db, err := buntdb.Open(cfg.Queue.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "wire: open cache queue db %s", cfg.Queue.Name)
		}
		return queue.NewCacheQueue(db, "tilequeue"), nil
	default:
		return nil, errors.Errorf("wire: unsupported input_queue.type %q", cfg.Queue.Type)
	}
}

// buildRawrQueue mirrors buildQueue for the rawr_queue config block,
// which shares the same backend set.
func buildRawrQueue(ctx context.Context, cfg *config.Config) (queue.Queue, error) {
	rq := cfg.Queue
	rq.Type, rq.Name = cfg.Rawr.Type, cfg.Rawr.Name
	shim := *cfg
	shim.Queue = rq
	return buildQueue(ctx, &shim)
}

// buildStore constructs the configured blob-store backend.
func buildStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Type {
	case "directory":
		return store.NewDirectoryBackend(cfg.Store.Path), nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "wire: load aws config")
		}
		client := s3.NewFromConfig(awsCfg)
		return store.NewS3Backend(client, cfg.Store.Bucket, 30*time.Second, 3), nil
	case "azure":
		client, err := azblob.NewClientWithNoCredential(cfg.Store.Path, nil)
		if err != nil {
			return nil, errors.Wrap(err, "wire: new azure client")
		}
		return store.NewAzureBackend(client, cfg.Store.Bucket, 30*time.Second, 3), nil
	case "hdfs":
		client, err := hdfs.New(cfg.Store.Path)
		if err != nil {
			return nil, errors.Wrap(err, "wire: dial hdfs")
		}
		return store.NewHdfsBackend(client, cfg.Store.Bucket, 3), nil
	default:
		return nil, errors.Errorf("wire: unsupported store.type %q", cfg.Store.Type)
	}
}

// buildRegistry builds a Registry advertising exactly the configured
// output formats. The actual per-format encoder is outside this
// repo's scope (the vector-tile binary encoder and friends are an
// explicit non-goal); stubEncode is the seam a deployment wires a real
// encoder into, kept here only so the pipeline is runnable end to end.
func buildRegistry(formats []string) format.Registry {
	reg := make(format.Registry, len(formats))
	for _, ext := range formats {
		ext := ext
		reg[ext] = format.Format{
			Extension: ext,
			MIME:      mimeFor(ext),
			Encode: func(w io.Writer, _ format.FeatureLayers, _ format.Bounds, _ int) error {
				return errors.Errorf("format %q: no encoder wired for this deployment", ext)
			},
		}
	}
	return reg
}

func mimeFor(ext string) string {
	switch ext {
	case "json", "topojson":
		return "application/json"
	case "pbf", "mvt":
		return "application/x-protobuf"
	default:
		return "application/octet-stream"
	}
}
