package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/standings"
	"github.com/okian/cuerank/internal/domain/tiers"
	"github.com/okian/cuerank/pkg/logger"
)

// Expected aggregates the league locally, scope by scope, with the same
// allocator and aggregation the service runs.
func Expected(table *tiers.Table, l *League) (map[string][]model.Standing, error) {
	alloc, err := placement.NewAllocator(table)
	if err != nil {
		return nil, err
	}
	byScope := make(map[string][]model.MatchResult)
	for _, t := range l.Tournaments {
		results, err := alloc.Finalize(t)
		if err != nil {
			return nil, fmt.Errorf("tournament %s: %w", t.ID, err)
		}
		for _, r := range results {
			byScope[r.ScopeID] = append(byScope[r.ScopeID], r)
		}
	}
	out := make(map[string][]model.Standing, len(byScope))
	for scope, results := range byScope {
		out[scope] = standings.Aggregate(scope, results, nil)
	}
	return out, nil
}

// servedFields ignores what depends on the service's history rather than
// on the league: rank movement and verification.
var servedFields = cmpopts.IgnoreFields(model.Standing{},
	"PreviousRank", "RankChange", "VerifiedAt", "LastResultAt")

// Diff compares served rows against the expected rows and returns a
// human-readable difference, empty when they agree.
func Diff(expected, served []model.Standing) string {
	return cmp.Diff(expected, served, servedFields, cmpopts.EquateEmpty())
}

// verifyScopes recomputes every expected scope on the service and compares
// what it serves.
func verifyScopes(ctx context.Context, c *Client, expected map[string][]model.Standing, stats *Stats) error {
	log := logger.Get().Named("simulate")

	scopes := make([]string, 0, len(expected))
	for s := range expected {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)

	for _, scope := range scopes {
		if err := c.Recompute(ctx, scope); err != nil {
			return fmt.Errorf("recompute %s: %w", scope, err)
		}
		want := expected[scope]
		got, err := servedRows(ctx, c, scope, want)
		if err != nil {
			return err
		}
		stats.ScopesVerified++
		stats.RowsVerified += len(got)
		if d := Diff(want, got); d != "" {
			stats.Mismatches++
			log.Error(ctx, "standings mismatch", logger.String("scope", scope), logger.String("diff", d))
		}
	}
	if stats.Mismatches > 0 {
		return fmt.Errorf("%d of %d scopes disagree", stats.Mismatches, stats.ScopesVerified)
	}
	return nil
}

// servedRows returns the service's rows for scope in rank order. The list
// endpoint is capped by the service's max_standings_limit, so rows past the
// cap are fetched one player at a time.
func servedRows(ctx context.Context, c *Client, scope string, want []model.Standing) ([]model.Standing, error) {
	if len(want) == 0 {
		return nil, nil
	}
	got, err := c.Standings(ctx, scope, len(want))
	if err != nil {
		return nil, fmt.Errorf("standings %s: %w", scope, err)
	}
	for _, w := range want[min(len(got), len(want)):] {
		row, err := c.Standing(ctx, scope, w.PlayerID)
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("standing %s/%s: %w", scope, w.PlayerID, err)
		}
		got = append(got, row)
	}
	return got, nil
}
