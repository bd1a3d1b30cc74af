// Package recommend scores clubs and tournaments for a user's suggestion
// feeds. Scores only order candidates of the same batch; they are recomputed
// on every call and never stored.
package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
)

// Venue is a club as seen by the scorer. Optional attributes are nil.
type Venue struct {
	ID              string          `json:"id"`
	Name            string          `json:"name,omitempty"`
	IsPlatformOwned bool            `json:"is_platform_owned"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment"`
	Location        *model.GeoPoint `json:"location,omitempty"`
	AvailableTables int             `json:"available_tables"`
	AverageRating   *float64        `json:"average_rating,omitempty"`
}

// Tournament is an upcoming tournament hosted at Venue.
type Tournament struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name,omitempty"`
	TierCode            string          `json:"tier_code,omitempty"`
	Venue               Venue           `json:"venue"`
	PrizePool           decimal.Decimal `json:"prize_pool"`
	CurrentParticipants int             `json:"current_participants"`
	MaxParticipants     int             `json:"max_participants"`
	RegistrationOpensAt *time.Time      `json:"registration_opens_at,omitempty"`
}

// InteractionKind classifies a past user action on a club or tournament.
type InteractionKind string

// Interaction kinds. Membership and registration exclude the target from
// suggestions; other kinds are accepted and ignored.
const (
	InteractionMember     InteractionKind = "member"
	InteractionRegistered InteractionKind = "registered"
	InteractionVisited    InteractionKind = "visited"
)

// Interaction is one entry of a user's history.
type Interaction struct {
	TargetID string          `json:"target_id"`
	Kind     InteractionKind `json:"kind"`
}

// ScoredVenue is a candidate annotated with its score.
type ScoredVenue struct {
	Venue
	PriorityScore int `json:"priority_score"`
}

// ScoredTournament is a candidate annotated with its score.
type ScoredTournament struct {
	Tournament
	PriorityScore int `json:"priority_score"`
}

// Scorer computes priority scores with a fixed set of weights.
type Scorer struct {
	w Weights
}

// NewScorer validates w and returns a scorer using it.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, errs.Wrap("recommend.new_scorer", err)
	}
	return &Scorer{w: w}, nil
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights { return s.w }

// ScoreVenue returns v's priority score for a user at user (optional).
func (s *Scorer) ScoreVenue(v Venue, user *model.GeoPoint) (int, error) {
	const op = "recommend.score_venue"
	total, err := s.venueTerms(op, v, user)
	if err != nil {
		return 0, err
	}
	return round(op, total)
}

// ScoreTournament returns t's priority score. now anchors the registration
// window so results are reproducible.
func (s *Scorer) ScoreTournament(t Tournament, user *model.GeoPoint, now time.Time) (int, error) {
	const op = "recommend.score_tournament"
	total, err := s.venueTerms(op, t.Venue, user)
	if err != nil {
		return 0, err
	}
	if t.PrizePool.IsNegative() {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "negative prize pool")
	}
	if t.CurrentParticipants < 0 || t.MaxParticipants < 0 {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "negative participant count")
	}

	total += capped(t.PrizePool, s.w.PrizeDivisor, s.w.PrizeCap)
	if t.MaxParticipants > 0 {
		ratio := float64(t.CurrentParticipants) / float64(t.MaxParticipants)
		if ratio >= s.w.SweetSpotLow && ratio <= s.w.SweetSpotHigh {
			total += float64(s.w.SweetSpotBonus)
		}
	}
	if t.RegistrationOpensAt != nil {
		until := t.RegistrationOpensAt.Sub(now)
		if until >= 0 && until <= s.w.RegistrationWindow {
			total += float64(s.w.RegistrationBonus)
		}
	}
	return round(op, total)
}

func (s *Scorer) venueTerms(op string, v Venue, user *model.GeoPoint) (float64, error) {
	if v.MonthlyPayment.IsNegative() {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "venue %s: negative monthly payment", v.ID)
	}
	if v.AvailableTables < 0 {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "venue %s: negative table count", v.ID)
	}
	if v.AverageRating != nil {
		r := *v.AverageRating
		if math.IsNaN(r) || r < 0 || r > s.w.RatingMax {
			return 0, errs.Newf(op, errs.ErrInvalidArgument, "venue %s: rating %v outside [0, %v]", v.ID, r, s.w.RatingMax)
		}
	}
	if v.Location != nil {
		if err := v.Location.Validate(); err != nil {
			return 0, errs.WrapKind(op, errs.ErrInvalidArgument, err)
		}
	}
	if user != nil {
		if err := user.Validate(); err != nil {
			return 0, errs.WrapKind(op, errs.ErrInvalidArgument, err)
		}
	}

	var total float64
	if v.IsPlatformOwned {
		total += float64(s.w.OwnershipBonus)
	}
	total += capped(v.MonthlyPayment, s.w.PaymentDivisor, s.w.PaymentCap)
	if v.Location != nil && user != nil {
		total += math.Max(0, s.w.DistanceMax-Haversine(*user, *v.Location))
	}
	total += float64(v.AvailableTables) * float64(s.w.PointsPerTable)
	if v.AverageRating != nil {
		total += *v.AverageRating * s.w.RatingFactor
	}
	return total, nil
}

// round converts a score total to an int. Totals that do not fit are
// rejected rather than wrapped.
func round(op string, total float64) (int, error) {
	r := math.Round(total)
	if math.IsNaN(r) || r < 0 || r >= math.MaxInt {
		return 0, errs.Newf(op, errs.ErrInvalidArgument, "score %v out of range", total)
	}
	return int(r), nil
}

// capped returns min(amount/divisor, limit).
func capped(amount decimal.Decimal, divisor, limit int) float64 {
	v := amount.Div(decimal.NewFromInt(int64(divisor)))
	if lim := decimal.NewFromInt(int64(limit)); v.GreaterThan(lim) {
		v = lim
	}
	return v.InexactFloat64()
}

// RankVenues scores candidates and orders them by score descending, then id.
// Clubs the user is already a member of are left out.
func (s *Scorer) RankVenues(cands []Venue, user *model.GeoPoint, history []Interaction) ([]ScoredVenue, error) {
	skip := excluded(history, InteractionMember)
	out := make([]ScoredVenue, 0, len(cands))
	for _, v := range cands {
		if _, ok := skip[v.ID]; ok {
			continue
		}
		score, err := s.ScoreVenue(v, user)
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredVenue{Venue: v, PriorityScore: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RankTournaments is RankVenues for tournaments. Tournaments the user is
// already registered for are left out.
func (s *Scorer) RankTournaments(cands []Tournament, user *model.GeoPoint, history []Interaction, now time.Time) ([]ScoredTournament, error) {
	skip := excluded(history, InteractionRegistered)
	out := make([]ScoredTournament, 0, len(cands))
	for _, t := range cands {
		if _, ok := skip[t.ID]; ok {
			continue
		}
		score, err := s.ScoreTournament(t, user, now)
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredTournament{Tournament: t, PriorityScore: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func excluded(history []Interaction, kind InteractionKind) map[string]struct{} {
	m := make(map[string]struct{})
	for _, h := range history {
		if h.Kind == kind {
			m[h.TargetID] = struct{}{}
		}
	}
	return m
}
