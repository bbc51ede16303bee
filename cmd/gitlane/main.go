// Command gitlane prints the commit graph of a git repository and serves it
// over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	gogit "github.com/go-git/go-git/v5"
	"github.com/urfave/cli/v2"

	"github.com/kurobon/gitlane/internal/config"
	"github.com/kurobon/gitlane/internal/git"
	"github.com/kurobon/gitlane/internal/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gitlane: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "gitlane"
	app.Usage = "Draw the commit graph of a git repository"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"C"},
			Usage:   "Path inside the repository (default: current directory or $GITLANE_REPO)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"GITLANE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
	}
	app.Commands = []*cli.Command{
		cmdLog,
		cmdShow,
		cmdRefs,
		cmdServe,
	}
	return app
}

// graphFlags are shared by every command that loads the log.
var graphFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "approximation",
		Usage: "Lookahead depth of the commit ordering walk",
	},
	&cli.IntFlag{
		Name:  "max-colors",
		Usage: "Number of lane colors",
	},
	&cli.IntFlag{
		Name:  "max-width",
		Usage: "Widest graph, in columns, before the log is cut short",
	},
	&cli.IntFlag{
		Name:    "max-commits",
		Aliases: []string{"n"},
		Usage:   "Stop after this many commits",
	},
	&cli.StringSliceFlag{
		Name:  "hide",
		Usage: "Leave out a reference, or every reference under a prefix such as remotes/origin",
	},
}

// loadConfig layers defaults, environment, the config file and the command
// line, in that order. logLevel replaces the default log level.
func loadConfig(c *cli.Context, logLevel string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if os.Getenv("GITLANE_LOG_LEVEL") == "" {
		cfg.LogLevel = logLevel
	}
	if path := c.String("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("repo") {
		cfg.RepoPath = c.String("repo")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("approximation") {
		cfg.Approximation = c.Int("approximation")
	}
	if c.IsSet("max-colors") {
		cfg.MaxColors = c.Int("max-colors")
	}
	if c.IsSet("max-width") {
		cfg.MaxWidth = c.Int("max-width")
	}
	if c.IsSet("max-commits") {
		cfg.MaxCommits = c.Int("max-commits")
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type session struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   *gogit.Repository
	ctrl   *state.Controller
}

// openSession opens the repository and prepares a controller with the hidden
// references switched off. Nothing is loaded yet.
func openSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c, "warn")
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(errWriter(c))

	repo, err := git.Open(cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	ctrl, err := state.NewController(repo, state.OptionsFromConfig(cfg, logger, nil))
	if err != nil {
		return nil, err
	}
	if err := ctrl.Hide(c.StringSlice("hide")...); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, repo: repo, ctrl: ctrl}, nil
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
