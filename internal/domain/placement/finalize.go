package placement

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
)

// Finisher is one participant's final position and match record.
type Finisher struct {
	PlayerID      string `json:"player_id"`
	Placement     int    `json:"placement"`
	MatchesPlayed int    `json:"matches_played"`
	MatchesWon    int    `json:"matches_won"`
	MatchesLost   int    `json:"matches_lost"`
}

// Tournament is a finished tournament ready to be turned into results.
type Tournament struct {
	ID       string `json:"id"`
	TierCode string `json:"tier_code"`
	ClubID   string `json:"club_id,omitempty"`
	SeasonID string `json:"season_id,omitempty"`
	// Participants defaults to len(Finishers) when zero.
	Participants int        `json:"participants"`
	FinishedAt   time.Time  `json:"finished_at"`
	Finishers    []Finisher `json:"finishers"`
}

// Scopes lists the ranking scopes the tournament counts towards.
func (t Tournament) Scopes() []string {
	out := make([]string, 0, 3)
	if t.ClubID != "" {
		out = append(out, model.ClubScope(t.ClubID))
	}
	if t.SeasonID != "" {
		out = append(out, model.SeasonScope(t.SeasonID))
	}
	return append(out, model.ScopeGlobal)
}

// Finalize allocates points to every finisher and returns one result per
// finisher per scope, ordered by scope, placement and player.
func (a *Allocator) Finalize(t Tournament) ([]model.MatchResult, error) {
	const op = "placement.finalize"
	if strings.TrimSpace(t.ID) == "" {
		return nil, errs.Newf(op, errs.ErrInvalidArgument, "tournament id is required")
	}
	if len(t.Finishers) == 0 {
		return nil, errs.Newf(op, errs.ErrInvalidArgument, "tournament %s has no finishers", t.ID)
	}
	participants := t.Participants
	if participants == 0 {
		participants = len(t.Finishers)
	}
	if participants < len(t.Finishers) {
		return nil, errs.Newf(op, errs.ErrInvalidArgument, "%d finishers but only %d participants", len(t.Finishers), participants)
	}
	tier, err := a.table.TournamentTier(t.TierCode)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	seen := make(map[string]struct{}, len(t.Finishers))
	for _, f := range t.Finishers {
		if strings.TrimSpace(f.PlayerID) == "" {
			return nil, errs.Newf(op, errs.ErrInvalidArgument, "finisher without player id")
		}
		if _, dup := seen[f.PlayerID]; dup {
			return nil, errs.Newf(op, errs.ErrInvalidArgument, "player %s listed twice", f.PlayerID)
		}
		seen[f.PlayerID] = struct{}{}
		if f.MatchesPlayed < 0 || f.MatchesWon < 0 || f.MatchesLost < 0 || f.MatchesWon+f.MatchesLost > f.MatchesPlayed {
			return nil, errs.Newf(op, errs.ErrInvalidArgument, "player %s has an inconsistent match record", f.PlayerID)
		}
	}

	finishers := make([]Finisher, len(t.Finishers))
	copy(finishers, t.Finishers)
	sort.Slice(finishers, func(i, j int) bool {
		if finishers[i].Placement != finishers[j].Placement {
			return finishers[i].Placement < finishers[j].Placement
		}
		return finishers[i].PlayerID < finishers[j].PlayerID
	})

	scopes := t.Scopes()
	sort.Strings(scopes)
	out := make([]model.MatchResult, 0, len(scopes)*len(finishers))
	for _, scope := range scopes {
		for _, f := range finishers {
			pts, err := a.Allocate(tier.Code, f.Placement, participants)
			if err != nil {
				return nil, errs.Wrap(op, err)
			}
			out = append(out, model.MatchResult{
				TournamentID:  t.ID,
				PlayerID:      f.PlayerID,
				ScopeID:       scope,
				TierCode:      tier.Code,
				Placement:     f.Placement,
				PointsEarned:  pts,
				MatchesPlayed: f.MatchesPlayed,
				MatchesWon:    f.MatchesWon,
				MatchesLost:   f.MatchesLost,
				RecordedAt:    t.FinishedAt,
			})
		}
	}
	return out, nil
}
