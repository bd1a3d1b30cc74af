// Package standings folds tournament results into ranked standings.
//
// Ranking is always done for a whole scope at once: there is no way to move a
// single player. Order is total points descending, then tournaments played
// descending, then player id ascending, so identical inputs always produce
// identical ranks.
package standings

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
)

// Aggregate ranks every player with results in scope. previous is the
// scope's last snapshot; it sources PreviousRank and verification state.
// Results of other scopes are ignored.
func Aggregate(scope string, results []model.MatchResult, previous []model.Standing) []model.Standing {
	prev := index(scope, previous)

	byPlayer := make(map[string]*model.Standing)
	for _, r := range results {
		if r.ScopeID != scope {
			continue
		}
		s, ok := byPlayer[r.PlayerID]
		if !ok {
			s = &model.Standing{ScopeID: scope, PlayerID: r.PlayerID}
			byPlayer[r.PlayerID] = s
		}
		s.TotalPoints += r.PointsEarned
		s.TournamentsPlayed++
		if s.BestFinish == 0 || r.Placement < s.BestFinish {
			s.BestFinish = r.Placement
		}
		s.MatchesPlayed += r.MatchesPlayed
		s.MatchesWon += r.MatchesWon
		s.MatchesLost += r.MatchesLost
		if r.RecordedAt.After(s.LastResultAt) {
			s.LastResultAt = r.RecordedAt
		}
	}

	// Verified players keep a zero-baseline row until their first result.
	for id, p := range prev {
		if _, ok := byPlayer[id]; ok || p.VerifiedAt == nil {
			continue
		}
		byPlayer[id] = &model.Standing{ScopeID: scope, PlayerID: id}
	}

	out := make([]model.Standing, 0, len(byPlayer))
	for _, s := range byPlayer {
		if p, ok := prev[s.PlayerID]; ok {
			s.VerifiedAt = p.VerifiedAt
		}
		out = append(out, *s)
	}
	rank(out, currentRanks(prev))
	return out
}

// Verify registers playerID in scope with a zero baseline, or marks an
// existing entry verified, and re-ranks the scope. An already verified entry
// keeps its original timestamp.
func Verify(scope, playerID string, at time.Time, current []model.Standing) ([]model.Standing, error) {
	const op = "standings.verify"
	if !model.ValidScope(scope) {
		return nil, errs.Newf(op, errs.ErrInvalidArgument, "invalid scope %q", scope)
	}
	if strings.TrimSpace(playerID) == "" {
		return nil, errs.Newf(op, errs.ErrInvalidArgument, "player id is required")
	}

	out := make([]model.Standing, 0, len(current)+1)
	found := false
	for _, s := range current {
		if s.ScopeID != scope {
			continue
		}
		if s.PlayerID == playerID {
			found = true
			if s.VerifiedAt == nil {
				ts := at
				s.VerifiedAt = &ts
			}
		}
		out = append(out, s)
	}
	if !found {
		ts := at
		out = append(out, model.Standing{ScopeID: scope, PlayerID: playerID, VerifiedAt: &ts})
	}
	// The baseline stays the one of the last recomputation.
	baseline := make(map[string]int, len(out))
	for _, s := range out {
		baseline[s.PlayerID] = s.PreviousRank
	}
	rank(out, baseline)
	return out, nil
}

// Less reports whether a ranks above b.
func Less(a, b model.Standing) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if a.TournamentsPlayed != b.TournamentsPlayed {
		return a.TournamentsPlayed > b.TournamentsPlayed
	}
	return a.PlayerID < b.PlayerID
}

func rank(rows []model.Standing, previous map[string]int) {
	sort.Slice(rows, func(i, j int) bool { return Less(rows[i], rows[j]) })
	for i := range rows {
		rows[i].CurrentRank = i + 1
		rows[i].PreviousRank = 0
		rows[i].RankChange = 0
		if p := previous[rows[i].PlayerID]; p > 0 {
			rows[i].PreviousRank = p
			rows[i].RankChange = p - rows[i].CurrentRank
		}
	}
}

func currentRanks(prev map[string]model.Standing) map[string]int {
	m := make(map[string]int, len(prev))
	for id, s := range prev {
		m[id] = s.CurrentRank
	}
	return m
}

func index(scope string, rows []model.Standing) map[string]model.Standing {
	m := make(map[string]model.Standing, len(rows))
	for _, s := range rows {
		if s.ScopeID == scope {
			m[s.PlayerID] = s
		}
	}
	return m
}
