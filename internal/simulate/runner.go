package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cuerank/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a full simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting league simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("clubs", cfg.Clubs),
		logger.Int("seasons", cfg.Seasons),
		logger.Int("tournaments", cfg.Tournaments),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	table, err := client.Tiers(ctx)
	if err != nil {
		return fmt.Errorf("fetch tier table: %w", err)
	}

	gen := NewGenerator(cfg.Seed)
	league, err := gen.League(cfg, table)
	if err != nil {
		return fmt.Errorf("generate league: %w", err)
	}
	stats.TournamentsGenerated = len(league.Tournaments)
	log.Info(ctx, "league generated", logger.Int64("seed", gen.Seed()), logger.String("tierTable", table.Version))

	if cfg.OutputFile != "" {
		if err := saveLeague(cfg.OutputFile, league); err != nil {
			log.Warn(ctx, "failed to save league", logger.Error(err))
		}
	}

	finalizeAll(ctx, cfg, client, league, stats)
	if stats.Failed > 0 {
		return fmt.Errorf("%d tournaments failed to finalize", stats.Failed)
	}

	expected, err := Expected(table, league)
	if err != nil {
		return err
	}
	verifyErr := verifyScopes(ctx, client, expected, stats)

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "final statistics",
		logger.Int("tournamentsGenerated", stats.TournamentsGenerated),
		logger.Int("finalized", stats.Finalized),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("scopesVerified", stats.ScopesVerified),
		logger.Int("rowsVerified", stats.RowsVerified),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration))
	return verifyErr
}

func saveLeague(path string, l *League) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal league: %w", err)
	}
	return os.WriteFile(path, data, filePermission)
}
