package api

import (
	"net/http"
)

// handleTiers handles GET /v1/tiers.
func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tiers())
}

// handleTierLookup handles GET /v1/tiers/lookup?entry_fee=&player=.
func (s *Server) handleTierLookup(w http.ResponseWriter, r *http.Request) {
	const op = "api.tier_lookup"
	if r.URL.Query().Get("entry_fee") == "" {
		writeError(w, badRequest(op, "entry_fee is required"))
		return
	}
	fee, err := intQuery(op, r, "entry_fee", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.deps.LookupTier(r.Context(), fee, r.URL.Query().Get("player"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type pointsResponse struct {
	TierCode     string `json:"tier_code"`
	Placement    int    `json:"placement"`
	Participants int    `json:"participants"`
	Points       int    `json:"points"`
}

// handlePoints handles GET /v1/tiers/{code}/points?placement=&participants=.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	const op = "api.points"
	code, err := requirePath(op, r, "code")
	if err != nil {
		writeError(w, err)
		return
	}
	placement, err := intQuery(op, r, "placement", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	participants, err := intQuery(op, r, "participants", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	pts, err := s.deps.AllocatePoints(r.Context(), code, placement, participants)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointsResponse{
		TierCode: code, Placement: placement, Participants: participants, Points: pts,
	})
}

type challengeRequest struct {
	Wager *int `json:"wager"`
}

// handleChallengeConfig handles POST /v1/challenges/config.
func (s *Server) handleChallengeConfig(w http.ResponseWriter, r *http.Request) {
	const op = "api.challenge_config"
	var req challengeRequest
	if err := decode(op, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Wager == nil {
		writeError(w, badRequest(op, "wager is required"))
		return
	}
	cfg, err := s.deps.ResolveChallenge(r.Context(), *req.Wager)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
