package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/cuerank/internal/adapters/mq/queue"
	"github.com/okian/cuerank/internal/adapters/repository"
	"github.com/okian/cuerank/internal/domain/errs"
	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/standings"
	"github.com/okian/cuerank/pkg/logger"
	"github.com/okian/cuerank/pkg/metrics"
)

// FinalizeResult reports what a finalization recorded.
type FinalizeResult struct {
	TournamentID string              `json:"tournament_id"`
	Duplicate    bool                `json:"duplicate"`
	Scopes       []string            `json:"scopes,omitempty"`
	Results      []model.MatchResult `json:"results,omitempty"`
}

// FinalizeTournament awards placement points for a finished tournament,
// persists one result per finisher and scope, and schedules the touched
// scopes for recomputation. A tournament is finalized at most once; a repeat
// call reports Duplicate and changes nothing.
func (s *Service) FinalizeTournament(ctx context.Context, t placement.Tournament) (FinalizeResult, error) {
	const op = "service.finalize_tournament"
	store, q, err := s.components(op)
	if err != nil {
		return FinalizeResult{}, err
	}
	out := FinalizeResult{TournamentID: t.ID}

	if strings.TrimSpace(t.ID) == "" {
		return out, errs.Newf(op, errs.ErrInvalidArgument, "tournament id is required")
	}
	if t.FinishedAt.IsZero() {
		t.FinishedAt = s.now().UTC()
	}
	results, err := s.allocator.Finalize(t)
	if err != nil {
		return out, errs.Wrap(op, err)
	}

	// Concurrent calls for one tournament wait here, so a repeat is only
	// reported once the first call has stored its results.
	release, err := s.locker.Acquire(ctx, "tournament:"+t.ID)
	if err != nil {
		return out, errs.Wrap(op, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, "releasing tournament lock", logger.String("tournament", t.ID), logger.Error(err))
		}
	}()

	if s.deduper.SeenAndRecord(ctx, t.ID) {
		metrics.RecordTournamentDuplicate()
		s.logger.Debug(ctx, "duplicate finalization skipped", logger.String("tournament", t.ID))
		out.Duplicate = true
		return out, nil
	}
	for _, r := range results {
		if r.ScopeID == model.ScopeGlobal {
			metrics.RecordPlacementAllocation(r.TierCode)
		}
	}

	if err := store.AppendResults(ctx, t.ID, results); err != nil {
		if errors.Is(err, repository.ErrDuplicateTournament) {
			metrics.RecordTournamentDuplicate()
			out.Duplicate = true
			return out, nil
		}
		s.deduper.Unrecord(ctx, t.ID)
		return out, errs.Wrap(op, err)
	}
	metrics.RecordTournamentFinalized()

	out.Scopes = t.Scopes()
	out.Results = results
	for _, scope := range out.Scopes {
		s.schedule(ctx, q, scope, "finalize:"+t.ID)
	}

	s.logger.Info(ctx, "tournament finalized",
		logger.String("tournament", t.ID),
		logger.String("tier", t.TierCode),
		logger.Int("finishers", len(t.Finishers)),
		logger.Any("scopes", out.Scopes),
	)
	return out, nil
}

// schedule queues a recomputation of scope. When the queue refuses the job
// the recomputation runs inline; results are already durable, so a failure
// here only delays the standings until the next recompute of that scope.
func (s *Service) schedule(ctx context.Context, q queue.Queue, scope, reason string) {
	_, err := q.Enqueue(ctx, queue.Job{Scope: scope, Reason: reason, EnqueuedAt: s.now()})
	if err == nil {
		return
	}
	s.logger.Warn(ctx, "recompute not queued, running inline",
		logger.String("scope", scope), logger.Error(err))
	if err := s.RecomputeStandings(ctx, scope); err != nil {
		s.logger.Error(ctx, "inline recompute failed",
			logger.String("scope", scope), logger.Error(err))
	}
}

// RecomputeStandings rebuilds the standings of scope from every result
// recorded for it. Read, aggregate and write happen under the scope's lock;
// readers keep seeing the previous snapshot until the new one is published,
// and a failed write leaves it in place.
func (s *Service) RecomputeStandings(ctx context.Context, scope string) error {
	const op = "service.recompute_standings"
	store, _, err := s.components(op)
	if err != nil {
		return err
	}
	if !model.ValidScope(scope) {
		return errs.Newf(op, errs.ErrInvalidArgument, "invalid scope %q", scope)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.recomputeTimeout)
	defer cancel()

	release, err := s.locker.Acquire(ctx, "standings:"+scope)
	if err != nil {
		metrics.RecordRecomputeError()
		return errs.Wrap(op, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, "releasing scope lock", logger.String("scope", scope), logger.Error(err))
		}
	}()

	previous, err := store.LoadStandings(ctx, scope)
	if err != nil {
		metrics.RecordRecomputeError()
		return errs.Wrap(op, err)
	}
	results, err := store.ListResults(ctx, scope)
	if err != nil {
		metrics.RecordRecomputeError()
		return errs.Wrap(op, err)
	}

	next := standings.Aggregate(scope, results, previous)
	if err := store.ReplaceStandings(ctx, scope, next); err != nil {
		metrics.RecordRecomputeError()
		return errs.Wrap(op, err)
	}

	change := standings.Diff(previous, next)
	took := time.Since(start)
	metrics.RecordRecompute(scopeKind(scope))
	metrics.RecordRecomputeLatency(float64(took.Microseconds()) / 1000)
	metrics.RecordStandingsSize(len(next))
	metrics.RecordRankMovements(change.Added, change.Dropped, change.MovedUp, change.MovedDown)

	s.logger.Debug(ctx, "standings recomputed",
		logger.String("scope", scope),
		logger.Int("results", len(results)),
		logger.Int("players", len(next)),
		logger.Int("added", change.Added),
		logger.Int("movedUp", change.MovedUp),
		logger.Int("movedDown", change.MovedDown),
		logger.Duration("took", took),
	)
	return nil
}

// Standings returns the first limit rows of scope. Limits above the
// configured maximum are clamped.
func (s *Service) Standings(ctx context.Context, scope string, limit int) ([]model.Standing, error) {
	const op = "service.standings"
	store, _, err := s.components(op)
	if err != nil {
		return nil, err
	}
	if !model.ValidScope(scope) {
		return nil, errs.Newf(op, errs.ErrInvalidArgument, "invalid scope %q", scope)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	rows, err := store.TopN(ctx, scope, limit)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return rows, nil
}

// Standing returns one player's row in scope.
func (s *Service) Standing(ctx context.Context, scope, playerID string) (model.Standing, error) {
	const op = "service.standing"
	store, _, err := s.components(op)
	if err != nil {
		return model.Standing{}, err
	}
	if !model.ValidScope(scope) {
		return model.Standing{}, errs.Newf(op, errs.ErrInvalidArgument, "invalid scope %q", scope)
	}
	row, err := store.Standing(ctx, scope, playerID)
	if err != nil {
		return model.Standing{}, errs.Wrap(op, err)
	}
	return row, nil
}

// VerifyPlayer registers playerID in scope with a zero baseline, or marks an
// existing row verified, and republishes the scope.
func (s *Service) VerifyPlayer(ctx context.Context, scope, playerID string) (model.Standing, error) {
	const op = "service.verify_player"
	store, _, err := s.components(op)
	if err != nil {
		return model.Standing{}, err
	}
	if !model.ValidScope(scope) {
		return model.Standing{}, errs.Newf(op, errs.ErrInvalidArgument, "invalid scope %q", scope)
	}

	ctx, cancel := context.WithTimeout(ctx, s.recomputeTimeout)
	defer cancel()
	release, err := s.locker.Acquire(ctx, "standings:"+scope)
	if err != nil {
		return model.Standing{}, errs.Wrap(op, err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	current, err := store.LoadStandings(ctx, scope)
	if err != nil {
		return model.Standing{}, errs.Wrap(op, err)
	}
	next, err := standings.Verify(scope, playerID, s.now().UTC(), current)
	if err != nil {
		return model.Standing{}, errs.Wrap(op, err)
	}
	if err := store.ReplaceStandings(ctx, scope, next); err != nil {
		return model.Standing{}, errs.Wrap(op, err)
	}
	for _, row := range next {
		if row.PlayerID == playerID {
			s.logger.Info(ctx, "player verified",
				logger.String("scope", scope), logger.String("player", playerID), logger.Int("rank", row.CurrentRank))
			return row, nil
		}
	}
	return model.Standing{}, errs.Newf(op, errs.ErrNotFound, "player %s missing after verification", playerID)
}

func scopeKind(scope string) string {
	if i := strings.IndexByte(scope, ':'); i > 0 {
		return scope[:i]
	}
	return scope
}
