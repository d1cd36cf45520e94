package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/internal/nlog"
)

func main() {
	app := &cli.App{
		Name:  "tilequeue",
		Usage: "map-tile rendering work-distribution core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config file",
				Value: "tilequeue.yaml",
			},
			&cli.IntFlag{
				Name:  "log-level",
				Usage: "nlog level: 1=error 2=warn 3=info 4=verbose",
				Value: 3,
			},
		},
		Before: func(c *cli.Context) error {
			// The flag counts from 1; nlog's levels count from 0.
			nlog.SetLevel(int32(c.Int("log-level") - 1))
			return nil
		},
		Commands: []*cli.Command{
			processCommand,
			seedCommand,
			drainCommand,
			intersectCommand,
			enqueueToiCommand,
			tileSizeCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		nlog.Errorf("tilequeue: %v", err)
		os.Exit(1)
	}
}
