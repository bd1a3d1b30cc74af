// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Scope prefixes. A scope is the ranking context standings are computed in.
const (
	ScopeGlobal       = "global"
	scopeClubPrefix   = "club:"
	scopeSeasonPrefix = "season:"
)

// ClubScope returns the scope identifier of a club.
func ClubScope(clubID string) string { return scopeClubPrefix + clubID }

// SeasonScope returns the scope identifier of a season.
func SeasonScope(seasonID string) string { return scopeSeasonPrefix + seasonID }

// ValidScope reports whether s is "global", "club:<id>" or "season:<id>".
func ValidScope(s string) bool {
	if s == ScopeGlobal {
		return true
	}
	for _, p := range []string{scopeClubPrefix, scopeSeasonPrefix} {
		if strings.HasPrefix(s, p) && strings.TrimSpace(s[len(p):]) != "" {
			return true
		}
	}
	return false
}

// MatchResult is one player's outcome in one finalized tournament, recorded
// against a single scope. Rows are immutable once written.
type MatchResult struct {
	TournamentID  string    `json:"tournament_id"`
	PlayerID      string    `json:"player_id"`
	ScopeID       string    `json:"scope_id"`
	TierCode      string    `json:"tier_code"`
	Placement     int       `json:"placement"`
	PointsEarned  int       `json:"points_earned"`
	MatchesPlayed int       `json:"matches_played"`
	MatchesWon    int       `json:"matches_won"`
	MatchesLost   int       `json:"matches_lost"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Standing is a player's ranked position inside a scope.
type Standing struct {
	ScopeID           string     `json:"scope_id"`
	PlayerID          string     `json:"player_id"`
	TotalPoints       int        `json:"total_points"`
	TournamentsPlayed int        `json:"tournaments_played"`
	BestFinish        int        `json:"best_finish"` // 0 when the player has no results
	MatchesPlayed     int        `json:"matches_played"`
	MatchesWon        int        `json:"matches_won"`
	MatchesLost       int        `json:"matches_lost"`
	CurrentRank       int        `json:"current_rank"`
	PreviousRank      int        `json:"previous_rank"` // 0 when the player had no previous standing
	RankChange        int        `json:"rank_change"`   // PreviousRank - CurrentRank, 0 without a previous standing
	LastResultAt      time.Time  `json:"last_result_at"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
}

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects NaN/Inf and out-of-range coordinates.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Longitude)
	}
	return nil
}
