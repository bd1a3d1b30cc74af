package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/okian/cuerank/internal/adapters/repository"
	"github.com/okian/cuerank/internal/adapters/repository/migrations"
	"github.com/okian/cuerank/internal/domain/model"
)

func setupPostgres(t *testing.T) *repository.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("cuerank"),
		postgres.WithUsername("cuerank"),
		postgres.WithPassword("cuerank"),
		postgres.BasicWaitStrategies(),
	)
	if container != nil {
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })
	}
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repository.OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	_, err = migrations.Up(ctx, db)
	require.NoError(t, err)

	store := repository.NewPostgresStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	results := []model.MatchResult{
		{TournamentID: "t1", PlayerID: "amy", ScopeID: club, TierCode: "H", Placement: 1, PointsEarned: 800, MatchesPlayed: 4, MatchesWon: 4, RecordedAt: at},
		{TournamentID: "t1", PlayerID: "bob", ScopeID: club, TierCode: "H", Placement: 2, PointsEarned: 600, MatchesPlayed: 4, MatchesWon: 3, MatchesLost: 1, RecordedAt: at},
		{TournamentID: "t1", PlayerID: "amy", ScopeID: model.ScopeGlobal, TierCode: "H", Placement: 1, PointsEarned: 800, MatchesPlayed: 4, MatchesWon: 4, RecordedAt: at},
	}

	t.Run("append and list", func(t *testing.T) {
		require.NoError(t, store.AppendResults(ctx, "t1", results))

		got, err := store.ListResults(ctx, club)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, at, got[0].RecordedAt)

		err = store.AppendResults(ctx, "t1", results)
		require.True(t, errors.Is(err, repository.ErrDuplicateTournament))

		scopes, err := store.Scopes(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{club, model.ScopeGlobal}, scopes)
	})

	t.Run("replace standings", func(t *testing.T) {
		verified := at.Add(time.Hour)
		rows := ranked(club, "amy", "bob")
		rows[0].LastResultAt = at
		rows[0].VerifiedAt = &verified
		require.NoError(t, store.ReplaceStandings(ctx, club, rows))

		loaded, err := store.LoadStandings(ctx, club)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		require.Equal(t, "amy", loaded[0].PlayerID)
		require.NotNil(t, loaded[0].VerifiedAt)
		require.True(t, verified.Equal(*loaded[0].VerifiedAt))

		require.NoError(t, store.ReplaceStandings(ctx, club, ranked(club, "bob", "amy", "cal")))
		top, err := store.TopN(ctx, club, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		require.Equal(t, "bob", top[0].PlayerID)

		cal, err := store.Standing(ctx, club, "cal")
		require.NoError(t, err)
		require.Equal(t, 3, cal.CurrentRank)

		_, err = store.Standing(ctx, club, "zed")
		require.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("invalid snapshot keeps previous rows", func(t *testing.T) {
		bad := ranked(club, "dan", "eve")
		bad[1].CurrentRank = 5
		err := store.ReplaceStandings(ctx, club, bad)
		require.True(t, errors.Is(err, repository.ErrInvalidSnapshot))

		loaded, err := store.LoadStandings(ctx, club)
		require.NoError(t, err)
		require.Len(t, loaded, 3)
	})
}
