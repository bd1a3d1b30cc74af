// Package tiers holds the authored reference data of the ranking engine:
// wager bands that decide a challenge's match format, and tournament tiers
// with their placement point tables.
//
// Tables are immutable once loaded. Default returns the versioned table that
// ships with the service; Load reads an override from YAML. Both paths run
// Validate so a broken table is rejected at startup, never at call time.
package tiers

import (
	"strings"

	"github.com/okian/cuerank/internal/domain/errs"
)

// DefaultVersion identifies the table returned by Default. Bump it whenever a
// band, handicap or point value changes.
const DefaultVersion = "2024.1"

// Global wager limits of the default table.
const (
	DefaultWagerMin = 100
	DefaultWagerMax = 650
)

// WagerTier maps a closed band [MinBet, MaxBet] of stake amounts to the
// match parameters every challenge in the band shares.
type WagerTier struct {
	MinBet           int    `koanf:"min_bet" json:"min_bet"`
	MaxBet           int    `koanf:"max_bet" json:"max_bet"`
	RaceTo           int    `koanf:"race_to" json:"race_to"`
	HandicapFullRank int    `koanf:"handicap_full_rank" json:"handicap_full_rank"`
	HandicapHalfRank int    `koanf:"handicap_half_rank" json:"handicap_half_rank"`
	Description      string `koanf:"description" json:"description"`
}

// Contains reports whether amount lies inside the closed band.
func (w WagerTier) Contains(amount int) bool {
	return amount >= w.MinBet && amount <= w.MaxBet
}

// PlacementPointTable lists the points awarded per finishing bucket.
type PlacementPointTable struct {
	First         int `koanf:"first" json:"first"`
	Second        int `koanf:"second" json:"second"`
	Third         int `koanf:"third" json:"third"`
	Fourth        int `koanf:"fourth" json:"fourth"`
	Top8          int `koanf:"top8" json:"top8"`
	Participation int `koanf:"participation" json:"participation"`
}

// TournamentTier is a tournament class identified by a single-letter code.
type TournamentTier struct {
	Code        string              `koanf:"code" json:"code"`
	Name        string              `koanf:"name" json:"name"`
	Points      PlacementPointTable `koanf:"points" json:"points"`
	EntryFeeMin int                 `koanf:"entry_fee_min" json:"entry_fee_min"`
	EntryFeeMax int                 `koanf:"entry_fee_max" json:"entry_fee_max"`
	// MinRank and MaxRank bound the global rank a player must hold to enter.
	// Nil means unbounded on that side.
	MinRank *int `koanf:"min_rank" json:"min_rank,omitempty"`
	MaxRank *int `koanf:"max_rank" json:"max_rank,omitempty"`
}

// Eligible reports whether a player holding the given global rank may enter.
// Rank 0 is an unranked player: eligible unless the tier caps MaxRank.
func (t TournamentTier) Eligible(rank int) bool {
	if rank <= 0 {
		return t.MaxRank == nil
	}
	if t.MinRank != nil && rank < *t.MinRank {
		return false
	}
	if t.MaxRank != nil && rank > *t.MaxRank {
		return false
	}
	return true
}

// Table is a complete, versioned set of wager bands and tournament tiers.
type Table struct {
	Version     string           `koanf:"version" json:"version"`
	WagerMin    int              `koanf:"wager_min" json:"wager_min"`
	WagerMax    int              `koanf:"wager_max" json:"wager_max"`
	Wagers      []WagerTier      `koanf:"wagers" json:"wagers"`
	Tournaments []TournamentTier `koanf:"tournaments" json:"tournaments"`
}

// TournamentTier looks up a tier by code. Codes are case-insensitive.
func (t *Table) TournamentTier(code string) (TournamentTier, error) {
	const op = "tiers.tournament_tier"
	c := strings.ToUpper(strings.TrimSpace(code))
	for _, tt := range t.Tournaments {
		if tt.Code == c {
			return tt, nil
		}
	}
	return TournamentTier{}, errs.Newf(op, errs.ErrNotFound, "unknown tournament tier %q", code)
}

// TierForEntryFee returns the tier whose entry-fee band contains fee.
func (t *Table) TierForEntryFee(fee int) (TournamentTier, error) {
	const op = "tiers.tier_for_entry_fee"
	for _, tt := range t.Tournaments {
		if fee >= tt.EntryFeeMin && fee <= tt.EntryFeeMax {
			return tt, nil
		}
	}
	return TournamentTier{}, errs.Newf(op, errs.ErrNotFound, "no tier for entry fee %d", fee)
}

func intPtr(v int) *int { return &v }

// Default returns a fresh copy of the authored table.
func Default() *Table {
	return &Table{
		Version:  DefaultVersion,
		WagerMin: DefaultWagerMin,
		WagerMax: DefaultWagerMax,
		Wagers: []WagerTier{
			{MinBet: 551, MaxBet: 650, RaceTo: 9, HandicapFullRank: 3, HandicapHalfRank: 2, Description: "High stakes, race to 9"},
			{MinBet: 451, MaxBet: 550, RaceTo: 8, HandicapFullRank: 3, HandicapHalfRank: 2, Description: "Race to 8"},
			{MinBet: 351, MaxBet: 450, RaceTo: 7, HandicapFullRank: 2, HandicapHalfRank: 1, Description: "Race to 7"},
			{MinBet: 251, MaxBet: 350, RaceTo: 6, HandicapFullRank: 2, HandicapHalfRank: 1, Description: "Race to 6"},
			{MinBet: 201, MaxBet: 250, RaceTo: 5, HandicapFullRank: 2, HandicapHalfRank: 1, Description: "Race to 5"},
			{MinBet: 151, MaxBet: 200, RaceTo: 4, HandicapFullRank: 1, HandicapHalfRank: 1, Description: "Race to 4"},
			{MinBet: 100, MaxBet: 150, RaceTo: 3, HandicapFullRank: 1, HandicapHalfRank: 0, Description: "Friendly, race to 3"},
		},
		Tournaments: []TournamentTier{
			{
				Code: "G", Name: "Grand",
				Points:      PlacementPointTable{First: 1200, Second: 900, Third: 700, Fourth: 600, Top8: 400, Participation: 100},
				EntryFeeMin: 500, EntryFeeMax: 1000,
			},
			{
				Code: "H", Name: "High",
				Points:      PlacementPointTable{First: 800, Second: 600, Third: 450, Fourth: 400, Top8: 250, Participation: 60},
				EntryFeeMin: 200, EntryFeeMax: 499,
			},
			{
				Code: "I", Name: "Intermediate",
				Points:      PlacementPointTable{First: 500, Second: 375, Third: 280, Fourth: 250, Top8: 150, Participation: 40},
				EntryFeeMin: 50, EntryFeeMax: 199,
				MinRank: intPtr(26),
			},
			{
				Code: "K", Name: "Kickoff",
				Points:      PlacementPointTable{First: 300, Second: 225, Third: 170, Fourth: 150, Top8: 90, Participation: 25},
				EntryFeeMin: 0, EntryFeeMax: 49,
				MinRank: intPtr(101),
			},
		},
	}
}
