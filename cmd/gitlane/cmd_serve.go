package main

import (
	"github.com/urfave/cli/v2"

	"github.com/kurobon/gitlane/internal/server"
)

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "Serve the log over HTTP and follow reference changes",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "Listen address (default :8080 or $GITLANE_ADDR)",
		},
	}, graphFlags...),
	Action: runServe,
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c, "info")
	if err != nil {
		return err
	}
	return server.Serve(c.Context, cfg, cfg.Logger(errWriter(c)), c.StringSlice("hide")...)
}
