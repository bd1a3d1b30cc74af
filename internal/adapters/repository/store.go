// Package repository persists match results and the published standings
// snapshot of every scope.
package repository

import (
	"context"

	"github.com/okian/cuerank/internal/domain/model"
)

// Store provides read/write access to results and standings.
//
// ReplaceStandings swaps a scope's whole snapshot in one step: readers see
// either the previous rows or the new ones, never a mix. A failed replace
// leaves the previous snapshot in place.
type Store interface {
	// AppendResults records the results of one finalized tournament.
	// Returns ErrDuplicateTournament if the tournament was already recorded.
	AppendResults(ctx context.Context, tournamentID string, results []model.MatchResult) error

	// ListResults returns every result recorded against scope.
	ListResults(ctx context.Context, scope string) ([]model.MatchResult, error)

	// LoadStandings returns the current snapshot of scope in rank order.
	// An unknown scope has an empty snapshot.
	LoadStandings(ctx context.Context, scope string) ([]model.Standing, error)

	// ReplaceStandings publishes rows as the new snapshot of scope.
	ReplaceStandings(ctx context.Context, scope string, rows []model.Standing) error

	// TopN returns the first n rows of scope's snapshot.
	TopN(ctx context.Context, scope string, n int) ([]model.Standing, error)

	// Standing returns one player's row. Returns ErrNotFound if absent.
	Standing(ctx context.Context, scope, playerID string) (model.Standing, error)

	// Scopes lists scopes that have results or a snapshot.
	Scopes(ctx context.Context) ([]string, error)

	Close() error
}
