package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/cuerank/internal/domain/challenge"
	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/internal/domain/recommend"
	"github.com/okian/cuerank/internal/domain/tiers"
	"github.com/okian/cuerank/pkg/metrics"
)

// Tiers returns the tier table in use.
func (s *Service) Tiers() *tiers.Table {
	return s.table
}

// Weights returns the recommendation weights in use.
func (s *Service) Weights() recommend.Weights {
	return s.scorer.Weights()
}

// ResolveChallenge validates wager against the global limits and returns the
// match format of its band.
func (s *Service) ResolveChallenge(_ context.Context, wager int) (challenge.MatchConfig, error) {
	if err := s.resolver.ValidateWager(wager); err != nil {
		metrics.RecordChallengeResolution("invalid")
		return challenge.MatchConfig{}, err
	}
	cfg, err := s.resolver.Resolve(wager)
	if err != nil {
		metrics.RecordChallengeResolution("not_found")
		return challenge.MatchConfig{}, err
	}
	metrics.RecordChallengeResolution("ok")
	return cfg, nil
}

// AllocatePoints returns the points a placement earns in a tier.
func (s *Service) AllocatePoints(_ context.Context, code string, placement, participants int) (int, error) {
	pts, err := s.allocator.Allocate(code, placement, participants)
	if err != nil {
		return 0, err
	}
	metrics.RecordPlacementAllocation(code)
	return pts, nil
}

// TierLookup is the tier matching an entry fee and, when a player was
// given, whether their global rank lets them enter.
type TierLookup struct {
	Tier       tiers.TournamentTier `json:"tier"`
	PlayerID   string               `json:"player_id,omitempty"`
	GlobalRank int                  `json:"global_rank,omitempty"`
	Eligible   *bool                `json:"eligible,omitempty"`
}

// LookupTier finds the tier for entryFee. An unranked player is checked as rank 0.
func (s *Service) LookupTier(ctx context.Context, entryFee int, playerID string) (TierLookup, error) {
	const op = "service.lookup_tier"
	tier, err := s.table.TierForEntryFee(entryFee)
	if err != nil {
		return TierLookup{}, err
	}
	out := TierLookup{Tier: tier}
	if playerID == "" {
		return out, nil
	}

	store, _, err := s.components(op)
	if err != nil {
		return TierLookup{}, err
	}
	row, err := store.Standing(ctx, model.ScopeGlobal, playerID)
	switch {
	case err == nil:
		out.GlobalRank = row.CurrentRank
	case errors.Is(err, errs.ErrNotFound):
	default:
		return TierLookup{}, errs.Wrap(op, err)
	}
	eligible := tier.Eligible(out.GlobalRank)
	out.PlayerID = playerID
	out.Eligible = &eligible
	return out, nil
}

// ClubRecommendationRequest carries the candidate clubs for one user.
type ClubRecommendationRequest struct {
	User       *model.GeoPoint         `json:"user,omitempty"`
	Candidates []recommend.Venue       `json:"candidates"`
	History    []recommend.Interaction `json:"history,omitempty"`
	Limit      int                     `json:"limit,omitempty"`
}

// TournamentRecommendationRequest carries the candidate tournaments for one user.
type TournamentRecommendationRequest struct {
	User       *model.GeoPoint         `json:"user,omitempty"`
	Candidates []recommend.Tournament  `json:"candidates"`
	History    []recommend.Interaction `json:"history,omitempty"`
	Limit      int                     `json:"limit,omitempty"`
	// Now overrides the reference time for the registration window.
	Now *time.Time `json:"now,omitempty"`
}

// RecommendClubs orders the candidate clubs for the user.
func (s *Service) RecommendClubs(_ context.Context, req ClubRecommendationRequest) ([]recommend.ScoredVenue, error) {
	start := time.Now()
	defer func() { metrics.RecordRecommendationLatency("clubs", msSince(start)) }()

	out, err := s.scorer.RankVenues(req.Candidates, req.User, req.History)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && req.Limit < len(out) {
		out = out[:req.Limit]
	}
	return out, nil
}

// RecommendTournaments orders the candidate tournaments for the user.
func (s *Service) RecommendTournaments(_ context.Context, req TournamentRecommendationRequest) ([]recommend.ScoredTournament, error) {
	start := time.Now()
	defer func() { metrics.RecordRecommendationLatency("tournaments", msSince(start)) }()

	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}
	out, err := s.scorer.RankTournaments(req.Candidates, req.User, req.History, now)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && req.Limit < len(out) {
		out = out[:req.Limit]
	}
	return out, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
