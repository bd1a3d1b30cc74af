// Command cuerank-sim finalizes a generated league against a running
// service and verifies the standings it serves.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/cuerank/internal/simulate"
	"github.com/okian/cuerank/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 200
	defaultClubs       = 8
	defaultSeasons     = 2
	defaultTournaments = 100
	defaultMaxField    = 32
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := newApp().Run(os.Args); err != nil {
		logger.Get().Error(context.Background(), "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cuerank-sim",
		Usage: "simulate a league against a running cuerank service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service"},
			&cli.IntFlag{Name: "players", Value: defaultPlayers, Usage: "size of the player pool"},
			&cli.IntFlag{Name: "clubs", Value: defaultClubs, Usage: "number of clubs"},
			&cli.IntFlag{Name: "seasons", Value: defaultSeasons, Usage: "number of seasons"},
			&cli.IntFlag{Name: "tournaments", Value: defaultTournaments, Usage: "tournaments to finalize"},
			&cli.IntFlag{Name: "max-field", Value: defaultMaxField, Usage: "largest tournament field"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * 2, Usage: "concurrent requests"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.Int64Flag{Name: "seed", Usage: "generator seed; 0 picks one from the clock"},
			&cli.StringFlag{Name: "output", Usage: "write the generated league to this JSON file"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every request"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.SetLevelString(c.String("log-level")); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
			defer cancel()

			return simulate.Run(ctx, &simulate.Config{
				BaseURL:     c.String("url"),
				Players:     c.Int("players"),
				Clubs:       c.Int("clubs"),
				Seasons:     c.Int("seasons"),
				Tournaments: c.Int("tournaments"),
				MaxField:    c.Int("max-field"),
				Workers:     c.Int("workers"),
				Timeout:     c.Duration("timeout"),
				Seed:        c.Int64("seed"),
				OutputFile:  c.String("output"),
				Verbose:     c.Bool("verbose"),
			})
		},
	}
}
