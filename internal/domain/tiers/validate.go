package tiers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/cuerank/internal/domain/errs"
)

// Validate checks the invariants every table must hold before use:
// wager bands are closed, sorted by MinBet descending, pairwise disjoint,
// gap-free and cover exactly [WagerMin, WagerMax]; tournament tiers have
// unique single-letter codes, non-increasing point tables and sane bounds.
func (t *Table) Validate() error {
	const op = "tiers.validate"
	if t == nil {
		return errs.Newf(op, errs.ErrConfiguration, "nil table")
	}
	if strings.TrimSpace(t.Version) == "" {
		return errs.Newf(op, errs.ErrConfiguration, "table version is required")
	}
	if err := t.validateWagers(); err != nil {
		return errs.WrapKind(op, errs.ErrConfiguration, err)
	}
	if err := t.validateTournaments(); err != nil {
		return errs.WrapKind(op, errs.ErrConfiguration, err)
	}
	return nil
}

func (t *Table) validateWagers() error {
	if t.WagerMin > t.WagerMax {
		return fmt.Errorf("wager range [%d, %d] is inverted", t.WagerMin, t.WagerMax)
	}
	if len(t.Wagers) == 0 {
		return fmt.Errorf("no wager tiers")
	}
	for i, w := range t.Wagers {
		if w.MinBet > w.MaxBet {
			return fmt.Errorf("wager tier %d: band [%d, %d] is inverted", i, w.MinBet, w.MaxBet)
		}
		if w.RaceTo <= 0 {
			return fmt.Errorf("wager tier %d: race_to must be positive, got %d", i, w.RaceTo)
		}
		if w.HandicapFullRank < 0 || w.HandicapHalfRank < 0 {
			return fmt.Errorf("wager tier %d: handicaps must not be negative", i)
		}
		if i == 0 {
			continue
		}
		prev := t.Wagers[i-1]
		if w.MinBet >= prev.MinBet {
			return fmt.Errorf("wager tier %d: bands must be ordered by min_bet descending", i)
		}
		if w.MaxBet >= prev.MinBet {
			return fmt.Errorf("wager tiers %d and %d overlap at [%d, %d]", i-1, i, prev.MinBet, w.MaxBet)
		}
		if w.MaxBet+1 != prev.MinBet {
			return fmt.Errorf("gap between wager tiers %d and %d: (%d, %d)", i, i-1, w.MaxBet, prev.MinBet)
		}
	}
	top, bottom := t.Wagers[0], t.Wagers[len(t.Wagers)-1]
	if top.MaxBet != t.WagerMax || bottom.MinBet != t.WagerMin {
		return fmt.Errorf("wager tiers cover [%d, %d], want [%d, %d]", bottom.MinBet, top.MaxBet, t.WagerMin, t.WagerMax)
	}
	return nil
}

func (t *Table) validateTournaments() error {
	if len(t.Tournaments) == 0 {
		return fmt.Errorf("no tournament tiers")
	}
	seen := make(map[string]struct{}, len(t.Tournaments))
	for _, tt := range t.Tournaments {
		if len(tt.Code) != 1 || strings.ToUpper(tt.Code) != tt.Code {
			return fmt.Errorf("tournament tier code %q must be a single upper-case letter", tt.Code)
		}
		if _, dup := seen[tt.Code]; dup {
			return fmt.Errorf("duplicate tournament tier %q", tt.Code)
		}
		seen[tt.Code] = struct{}{}

		p := tt.Points
		if p.Participation < 0 {
			return fmt.Errorf("tier %s: negative participation points", tt.Code)
		}
		ordered := []int{p.First, p.Second, p.Third, p.Fourth, p.Top8, p.Participation}
		if !sort.SliceIsSorted(ordered, func(i, j int) bool { return ordered[i] > ordered[j] }) {
			return fmt.Errorf("tier %s: point table must not increase with placement", tt.Code)
		}
		if tt.EntryFeeMin < 0 || tt.EntryFeeMin > tt.EntryFeeMax {
			return fmt.Errorf("tier %s: entry fee band [%d, %d] is invalid", tt.Code, tt.EntryFeeMin, tt.EntryFeeMax)
		}
		if tt.MinRank != nil && *tt.MinRank < 1 {
			return fmt.Errorf("tier %s: min_rank must be >= 1", tt.Code)
		}
		if tt.MinRank != nil && tt.MaxRank != nil && *tt.MinRank > *tt.MaxRank {
			return fmt.Errorf("tier %s: rank bounds are inverted", tt.Code)
		}
	}

	fees := make([]TournamentTier, len(t.Tournaments))
	copy(fees, t.Tournaments)
	sort.Slice(fees, func(i, j int) bool { return fees[i].EntryFeeMin < fees[j].EntryFeeMin })
	for i := 1; i < len(fees); i++ {
		if fees[i].EntryFeeMin <= fees[i-1].EntryFeeMax {
			return fmt.Errorf("entry fee bands of tiers %s and %s overlap", fees[i-1].Code, fees[i].Code)
		}
	}
	return nil
}
