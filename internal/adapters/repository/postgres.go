package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/pkg/metrics"
)

type tournamentRow struct {
	bun.BaseModel `bun:"table:finalized_tournaments,alias:ft"`

	ID          string    `bun:"id,pk"`
	FinalizedAt time.Time `bun:"finalized_at,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:match_results,alias:mr"`

	TournamentID  string    `bun:"tournament_id,pk"`
	ScopeID       string    `bun:"scope_id,pk"`
	PlayerID      string    `bun:"player_id,pk"`
	TierCode      string    `bun:"tier_code,notnull"`
	Placement     int       `bun:"placement,notnull"`
	PointsEarned  int       `bun:"points_earned,notnull"`
	MatchesPlayed int       `bun:"matches_played,notnull"`
	MatchesWon    int       `bun:"matches_won,notnull"`
	MatchesLost   int       `bun:"matches_lost,notnull"`
	RecordedAt    time.Time `bun:"recorded_at,notnull"`
}

type standingRow struct {
	bun.BaseModel `bun:"table:standings,alias:st"`

	ScopeID           string     `bun:"scope_id,pk"`
	PlayerID          string     `bun:"player_id,pk"`
	TotalPoints       int        `bun:"total_points,notnull"`
	TournamentsPlayed int        `bun:"tournaments_played,notnull"`
	BestFinish        int        `bun:"best_finish,notnull"`
	MatchesPlayed     int        `bun:"matches_played,notnull"`
	MatchesWon        int        `bun:"matches_won,notnull"`
	MatchesLost       int        `bun:"matches_lost,notnull"`
	CurrentRank       int        `bun:"current_rank,notnull"`
	PreviousRank      int        `bun:"previous_rank,notnull"`
	RankChange        int        `bun:"rank_change,notnull"`
	LastResultAt      time.Time  `bun:"last_result_at,nullzero"`
	VerifiedAt        *time.Time `bun:"verified_at"`
}

// PostgresStore is the Store backed by Postgres through bun.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, errs.WrapKind("repository.open_postgres", errs.ErrUnavailable, err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel((*tournamentRow)(nil), (*resultRow)(nil), (*standingRow)(nil))
	return db, nil
}

// NewPostgresStore wraps an open connection. Schema is managed by the
// migrations package.
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func unavailable(op string, err error) error {
	metrics.RecordErrorByComponent("repository", "postgres")
	return errs.WrapKind(op, errs.ErrUnavailable, err)
}

func (s *PostgresStore) AppendResults(ctx context.Context, tournamentID string, results []model.MatchResult) error {
	const op = "repository.append_results"
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(&tournamentRow{ID: tournamentID, FinalizedAt: s.now()}).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrDuplicateTournament
		}
		if len(results) == 0 {
			return nil
		}
		rows := make([]resultRow, len(results))
		for i, r := range results {
			rows[i] = resultRow{
				TournamentID: tournamentID, ScopeID: r.ScopeID, PlayerID: r.PlayerID,
				TierCode: r.TierCode, Placement: r.Placement, PointsEarned: r.PointsEarned,
				MatchesPlayed: r.MatchesPlayed, MatchesWon: r.MatchesWon, MatchesLost: r.MatchesLost,
				RecordedAt: r.RecordedAt,
			}
		}
		_, err = tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	switch {
	case errors.Is(err, ErrDuplicateTournament):
		return err
	case err != nil:
		return unavailable(op, err)
	}
	return nil
}

func (s *PostgresStore) ListResults(ctx context.Context, scope string) ([]model.MatchResult, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	var rows []resultRow
	err := s.db.NewSelect().Model(&rows).
		Where("scope_id = ?", scope).
		Order("recorded_at ASC", "tournament_id ASC", "player_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable("repository.list_results", err)
	}
	out := make([]model.MatchResult, len(rows))
	for i, r := range rows {
		out[i] = model.MatchResult{
			TournamentID: r.TournamentID, PlayerID: r.PlayerID, ScopeID: r.ScopeID,
			TierCode: r.TierCode, Placement: r.Placement, PointsEarned: r.PointsEarned,
			MatchesPlayed: r.MatchesPlayed, MatchesWon: r.MatchesWon, MatchesLost: r.MatchesLost,
			RecordedAt: r.RecordedAt.UTC(),
		}
	}
	return out, nil
}

func (s *PostgresStore) LoadStandings(ctx context.Context, scope string) ([]model.Standing, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	var rows []standingRow
	err := s.db.NewSelect().Model(&rows).
		Where("scope_id = ?", scope).
		Order("current_rank ASC").
		Scan(ctx)
	if err != nil {
		return nil, unavailable("repository.load_standings", err)
	}
	return toStandings(rows), nil
}

// ReplaceStandings deletes and rewrites the scope inside one transaction,
// serialized per scope with a transaction-scoped advisory lock.
func (s *PostgresStore) ReplaceStandings(ctx context.Context, scope string, rows []model.Standing) error {
	const op = "repository.replace_standings"
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(msSince(start)) }()

	if err := checkSnapshot(scope, rows); err != nil {
		return err
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", "standings:"+scope); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*standingRow)(nil)).Where("scope_id = ?", scope).Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		out := make([]standingRow, len(rows))
		for i, r := range rows {
			out[i] = standingRow{
				ScopeID: scope, PlayerID: r.PlayerID,
				TotalPoints: r.TotalPoints, TournamentsPlayed: r.TournamentsPlayed, BestFinish: r.BestFinish,
				MatchesPlayed: r.MatchesPlayed, MatchesWon: r.MatchesWon, MatchesLost: r.MatchesLost,
				CurrentRank: r.CurrentRank, PreviousRank: r.PreviousRank, RankChange: r.RankChange,
				LastResultAt: r.LastResultAt, VerifiedAt: r.VerifiedAt,
			}
		}
		_, err := tx.NewInsert().Model(&out).Exec(ctx)
		return err
	})
	if err != nil {
		return unavailable(op, err)
	}
	metrics.IncrementRepositorySnapshotSwaps()
	return nil
}

func (s *PostgresStore) TopN(ctx context.Context, scope string, n int) ([]model.Standing, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	var rows []standingRow
	err := s.db.NewSelect().Model(&rows).
		Where("scope_id = ?", scope).
		Order("current_rank ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, unavailable("repository.top_n", err)
	}
	return toStandings(rows), nil
}

func (s *PostgresStore) Standing(ctx context.Context, scope, playerID string) (model.Standing, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(msSince(start)) }()

	var row standingRow
	err := s.db.NewSelect().Model(&row).
		Where("scope_id = ?", scope).
		Where("player_id = ?", playerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Standing{}, ErrNotFound
	}
	if err != nil {
		return model.Standing{}, unavailable("repository.standing", err)
	}
	return toStandings([]standingRow{row})[0], nil
}

func (s *PostgresStore) Scopes(ctx context.Context) ([]string, error) {
	var scopes []string
	err := s.db.NewRaw(`
		SELECT scope_id FROM match_results
		UNION
		SELECT scope_id FROM standings
		ORDER BY scope_id`).Scan(ctx, &scopes)
	if err != nil {
		return nil, unavailable("repository.scopes", err)
	}
	return scopes, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func toStandings(rows []standingRow) []model.Standing {
	out := make([]model.Standing, len(rows))
	for i, r := range rows {
		var verified *time.Time
		if r.VerifiedAt != nil {
			v := r.VerifiedAt.UTC()
			verified = &v
		}
		out[i] = model.Standing{
			ScopeID: r.ScopeID, PlayerID: r.PlayerID,
			TotalPoints: r.TotalPoints, TournamentsPlayed: r.TournamentsPlayed, BestFinish: r.BestFinish,
			MatchesPlayed: r.MatchesPlayed, MatchesWon: r.MatchesWon, MatchesLost: r.MatchesLost,
			CurrentRank: r.CurrentRank, PreviousRank: r.PreviousRank, RankChange: r.RankChange,
			LastResultAt: r.LastResultAt.UTC(), VerifiedAt: verified,
		}
	}
	return out
}
