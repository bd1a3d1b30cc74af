// Package placement awards ranking points for tournament finishes.
package placement

import (
	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/tiers"
)

// Allocator turns (tier, placement) pairs into points.
type Allocator struct {
	table *tiers.Table
}

// NewAllocator validates t and returns an allocator bound to it.
func NewAllocator(t *tiers.Table) (*Allocator, error) {
	if err := t.Validate(); err != nil {
		return nil, errs.Wrap("placement.new_allocator", err)
	}
	return &Allocator{table: t}, nil
}

// Allocate returns the points for finishing at placement in a tournament of
// tier code. participants is optional; when positive it bounds placement.
func (a *Allocator) Allocate(code string, placement, participants int) (int, error) {
	const op = "placement.allocate"
	tier, err := a.table.TournamentTier(code)
	if err != nil {
		return 0, errs.Wrap(op, err)
	}
	if placement < 1 {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "placement must be >= 1, got %d", placement)
	}
	if participants > 0 && placement > participants {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "placement %d exceeds %d participants", placement, participants)
	}
	return pointsFor(tier.Points, placement), nil
}

func pointsFor(p tiers.PlacementPointTable, placement int) int {
	switch {
	case placement == 1:
		return p.First
	case placement == 2:
		return p.Second
	case placement == 3:
		return p.Third
	case placement == 4:
		return p.Fourth
	case placement <= 8:
		return p.Top8
	default:
		return p.Participation
	}
}
