package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS finalized_tournaments (
					id           TEXT PRIMARY KEY,
					finalized_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create finalized_tournaments: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_results (
					tournament_id  TEXT NOT NULL REFERENCES finalized_tournaments(id) ON DELETE CASCADE,
					scope_id       TEXT NOT NULL,
					player_id      TEXT NOT NULL,
					tier_code      CHAR(1) NOT NULL,
					placement      INTEGER NOT NULL CHECK (placement >= 1),
					points_earned  INTEGER NOT NULL CHECK (points_earned >= 0),
					matches_played INTEGER NOT NULL DEFAULT 0,
					matches_won    INTEGER NOT NULL DEFAULT 0,
					matches_lost   INTEGER NOT NULL DEFAULT 0,
					recorded_at    TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (tournament_id, scope_id, player_id)
				);
				CREATE INDEX IF NOT EXISTS idx_match_results_scope ON match_results(scope_id);
			`); err != nil {
				return fmt.Errorf("failed to create match_results: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS standings (
					scope_id           TEXT NOT NULL,
					player_id          TEXT NOT NULL,
					total_points       INTEGER NOT NULL,
					tournaments_played INTEGER NOT NULL,
					best_finish        INTEGER NOT NULL,
					matches_played     INTEGER NOT NULL DEFAULT 0,
					matches_won        INTEGER NOT NULL DEFAULT 0,
					matches_lost       INTEGER NOT NULL DEFAULT 0,
					current_rank       INTEGER NOT NULL,
					previous_rank      INTEGER NOT NULL DEFAULT 0,
					rank_change        INTEGER NOT NULL DEFAULT 0,
					last_result_at     TIMESTAMPTZ,
					verified_at        TIMESTAMPTZ,
					PRIMARY KEY (scope_id, player_id),
					UNIQUE (scope_id, current_rank)
				);
			`); err != nil {
				return fmt.Errorf("failed to create standings: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS standings;
				DROP TABLE IF EXISTS match_results;
				DROP TABLE IF EXISTS finalized_tournaments;
			`); err != nil {
				return fmt.Errorf("failed to drop ranking tables: %w", err)
			}
			return nil
		})
	})
}
