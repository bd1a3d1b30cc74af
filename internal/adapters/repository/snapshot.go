package repository

import (
	"fmt"
	"time"

	"github.com/okian/cuerank/internal/domain/model"
)

// Snapshot is an immutable, published standings view of one scope.
type Snapshot struct {
	Scope       string
	Rows        []model.Standing // rank order
	byPlayer    map[string]int
	PublishedAt time.Time
}

func newSnapshot(scope string, rows []model.Standing, at time.Time) *Snapshot {
	cp := make([]model.Standing, len(rows))
	copy(cp, rows)
	idx := make(map[string]int, len(cp))
	for i, r := range cp {
		idx[r.PlayerID] = i
	}
	return &Snapshot{Scope: scope, Rows: cp, byPlayer: idx, PublishedAt: at}
}

// checkSnapshot rejects rows that would publish duplicate or missing ranks.
func checkSnapshot(scope string, rows []model.Standing) error {
	seen := make(map[string]struct{}, len(rows))
	for i, r := range rows {
		if r.ScopeID != scope {
			return fmt.Errorf("%w: row %d belongs to scope %q", ErrInvalidSnapshot, i, r.ScopeID)
		}
		if r.CurrentRank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrInvalidSnapshot, i, r.CurrentRank)
		}
		if _, dup := seen[r.PlayerID]; dup {
			return fmt.Errorf("%w: player %s listed twice", ErrInvalidSnapshot, r.PlayerID)
		}
		seen[r.PlayerID] = struct{}{}
	}
	return nil
}
