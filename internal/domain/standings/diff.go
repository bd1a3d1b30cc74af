package standings

import "github.com/okian/cuerank/internal/domain/model"

// Change summarises how a scope moved between two snapshots.
type Change struct {
	Added     int
	Dropped   int
	MovedUp   int
	MovedDown int
	Unchanged int
}

// Diff compares two snapshots of the same scope by player id.
func Diff(previous, next []model.Standing) Change {
	before := make(map[string]int, len(previous))
	for _, s := range previous {
		before[s.PlayerID] = s.CurrentRank
	}
	var c Change
	for _, s := range next {
		r, ok := before[s.PlayerID]
		switch {
		case !ok:
			c.Added++
		case s.CurrentRank < r:
			c.MovedUp++
		case s.CurrentRank > r:
			c.MovedDown++
		default:
			c.Unchanged++
		}
		delete(before, s.PlayerID)
	}
	c.Dropped = len(before)
	return c
}
