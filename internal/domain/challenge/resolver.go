// Package challenge maps a challenge's wager amount to the match format both
// players agree to: race length and handicap racks by rank gap.
package challenge

import (
	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/tiers"
)

// MatchConfig is the format of a challenge match.
type MatchConfig struct {
	Wager            int    `json:"wager"`
	RaceTo           int    `json:"race_to"`
	HandicapFullRank int    `json:"handicap_full_rank"`
	HandicapHalfRank int    `json:"handicap_half_rank"`
	Description      string `json:"description"`
	TableVersion     string `json:"table_version"`
}

// Resolver resolves wagers against a validated table.
type Resolver struct {
	table *tiers.Table
}

// NewResolver validates t and returns a resolver bound to it.
func NewResolver(t *tiers.Table) (*Resolver, error) {
	if err := t.Validate(); err != nil {
		return nil, errs.Wrap("challenge.new_resolver", err)
	}
	return &Resolver{table: t}, nil
}

// ValidateWager rejects amounts outside the table's global wager limits.
func (r *Resolver) ValidateWager(amount int) error {
	if amount < r.table.WagerMin || amount > r.table.WagerMax {
		return errs.Newf("challenge.validate_wager", errs.ErrInvalidArgument,
			"wager %d outside [%d, %d]", amount, r.table.WagerMin, r.table.WagerMax)
	}
	return nil
}

// Resolve returns the configuration of the band containing amount.
func (r *Resolver) Resolve(amount int) (MatchConfig, error) {
	for _, w := range r.table.Wagers {
		if !w.Contains(amount) {
			continue
		}
		return MatchConfig{
			Wager:            amount,
			RaceTo:           w.RaceTo,
			HandicapFullRank: w.HandicapFullRank,
			HandicapHalfRank: w.HandicapHalfRank,
			Description:      w.Description,
			TableVersion:     r.table.Version,
		}, nil
	}
	return MatchConfig{}, errs.Newf("challenge.resolve", errs.ErrNotFound, "no wager band contains %d", amount)
}
