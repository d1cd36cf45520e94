package main

import (
	"github.com/urfave/cli/v2"

	"github.com/ducdk90/tilequeue/config"
	"github.com/ducdk90/tilequeue/internal/nlog"
)

var drainCommand = &cli.Command{
	Name:  "drain",
	Usage: "remove every currently visible message from the input queue",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		q, err := buildQueue(c.Context, cfg)
		if err != nil {
			return err
		}
		n, err := q.Clear()
		if err != nil {
			return err
		}
		nlog.Infof("drain: removed %d messages", n)
		return nil
	},
}
