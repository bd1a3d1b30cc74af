// Package api exposes the ranking engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/cuerank/internal/app"
	"github.com/okian/cuerank/internal/domain/challenge"
	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/recommend"
	"github.com/okian/cuerank/internal/domain/tiers"
)

const (
	defaultStandingsLimit = 50
	maxBodyBytes          = 1 << 20
	requestTimeout        = 30 * time.Second
)

// Dependencies is the engine surface the handlers call.
type Dependencies interface {
	StatsProvider

	Tiers() *tiers.Table
	ResolveChallenge(ctx context.Context, wager int) (challenge.MatchConfig, error)
	AllocatePoints(ctx context.Context, code string, placement, participants int) (int, error)
	LookupTier(ctx context.Context, entryFee int, playerID string) (service.TierLookup, error)

	FinalizeTournament(ctx context.Context, t placement.Tournament) (service.FinalizeResult, error)
	RecomputeStandings(ctx context.Context, scope string) error
	Standings(ctx context.Context, scope string, limit int) ([]model.Standing, error)
	Standing(ctx context.Context, scope, playerID string) (model.Standing, error)
	VerifyPlayer(ctx context.Context, scope, playerID string) (model.Standing, error)

	RecommendClubs(ctx context.Context, req service.ClubRecommendationRequest) ([]recommend.ScoredVenue, error)
	RecommendTournaments(ctx context.Context, req service.TournamentRecommendationRequest) ([]recommend.ScoredTournament, error)
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	deps    Dependencies
	ops     *opsHandler
	limiter *RateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter limits every /v1 route per client address.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps: deps,
		ops:  newOpsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.ops.health)
	r.Get("/stats", s.ops.statsJSON)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}

		r.Get("/tiers", s.handleTiers)
		r.Get("/tiers/lookup", s.handleTierLookup)
		r.Get("/tiers/{code}/points", s.handlePoints)
		r.Post("/challenges/config", s.handleChallengeConfig)

		r.Post("/tournaments/{id}/finalize", s.handleFinalize)

		r.Route("/scopes/{scope}", func(r chi.Router) {
			r.Post("/recompute", s.handleRecompute)
			r.Get("/standings", s.handleStandings)
			r.Get("/standings/{player}", s.handleStanding)
			r.Post("/players/{player}/verify", s.handleVerify)
		})

		r.Post("/recommendations/clubs", s.handleRecommendClubs)
		r.Post("/recommendations/tournaments", s.handleRecommendTournaments)
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a single JSON document into v, rejecting unknown fields.
func decode(op string, r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(op, "invalid body: %v", err)
	}
	if dec.More() {
		return badRequest(op, "invalid body: trailing data")
	}
	return nil
}

// intQuery parses an optional integer query parameter.
func intQuery(op string, r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(op, "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func requirePath(op string, r *http.Request, name string) (string, error) {
	v := pathParam(r, name)
	if v == "" {
		return "", badRequest(op, "missing %s", name)
	}
	return v, nil
}
