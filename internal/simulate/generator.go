package simulate

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/tiers"
)

// League is a generated set of players and finished tournaments.
type League struct {
	Seed        int64                  `json:"seed"`
	Players     []string               `json:"players"`
	Clubs       []string               `json:"clubs"`
	Seasons     []string               `json:"seasons"`
	Tournaments []placement.Tournament `json:"tournaments"`
}

// Generator builds reproducible leagues from a seed.
type Generator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewGenerator creates a generator. A zero seed is replaced by the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{faker: gofakeit.New(uint64(seed)), seed: seed}
}

// Seed returns the seed in use.
func (g *Generator) Seed() int64 { return g.seed }

// League generates cfg.Tournaments finished tournaments over the tiers of
// table. Player, club and season ids are unique within the league.
func (g *Generator) League(cfg *Config, table *tiers.Table) (*League, error) {
	if cfg.Players < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", cfg.Players)
	}
	if len(table.Tournaments) == 0 {
		return nil, fmt.Errorf("tier table %s has no tournament tiers", table.Version)
	}

	l := &League{
		Seed:    g.seed,
		Players: g.uniqueIDs(cfg.Players, func() string { return g.faker.Username() }),
		Clubs:   g.uniqueIDs(cfg.Clubs, func() string { return slug(g.faker.City()) }),
		Seasons: make([]string, cfg.Seasons),
	}
	for i := range l.Seasons {
		l.Seasons[i] = fmt.Sprintf("%d-s%d", 2026, i+1)
	}

	start := time.Date(2026, 1, 1, 19, 0, 0, 0, time.UTC)
	l.Tournaments = make([]placement.Tournament, cfg.Tournaments)
	for i := range l.Tournaments {
		tier := table.Tournaments[g.faker.Number(0, len(table.Tournaments)-1)]
		t := placement.Tournament{
			ID:         g.faker.UUID(),
			TierCode:   tier.Code,
			FinishedAt: start.Add(time.Duration(i) * 24 * time.Hour),
		}
		if len(l.Clubs) > 0 {
			t.ClubID = l.Clubs[g.faker.Number(0, len(l.Clubs)-1)]
		}
		if len(l.Seasons) > 0 {
			t.SeasonID = l.Seasons[i*len(l.Seasons)/len(l.Tournaments)]
		}
		t.Finishers, t.Participants = g.field(l.Players, cfg.MaxField)
		l.Tournaments[i] = t
	}
	return l, nil
}

// field draws a tournament field and its final placements. Participants can
// exceed the reported finishers, as with walk-overs.
func (g *Generator) field(players []string, maxField int) ([]placement.Finisher, int) {
	hi := min(maxField, len(players))
	n := g.faker.Number(2, max(2, hi))

	pool := make([]string, len(players))
	copy(pool, players)
	g.faker.ShuffleStrings(pool)

	rounds := 1
	for 1<<rounds < n {
		rounds++
	}
	out := make([]placement.Finisher, n)
	for i := range out {
		played := g.faker.Number(1, rounds)
		won := g.faker.Number(0, played)
		if i == 0 {
			won = played
		}
		out[i] = placement.Finisher{
			PlayerID:      pool[i],
			Placement:     i + 1,
			MatchesPlayed: played,
			MatchesWon:    won,
			MatchesLost:   played - won,
		}
	}
	return out, n + g.faker.Number(0, 2)
}

func (g *Generator) uniqueIDs(n int, next func() string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		id := next()
		if _, dup := seen[id]; dup || id == "" {
			id = fmt.Sprintf("%s%d", id, len(out))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// slug lowercases s and replaces anything but letters and digits with '-'.
func slug(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b = append(b, byte(r))
		case r >= 'A' && r <= 'Z':
			b = append(b, byte(r-'A'+'a'))
		default:
			if len(b) > 0 && b[len(b)-1] != '-' {
				b = append(b, '-')
			}
		}
	}
	return string(b)
}
