package api

import (
	"net/http"

	"github.com/okian/cuerank/internal/domain/model"
)

type standingsResponse struct {
	Scope     string           `json:"scope"`
	Standings []model.Standing `json:"standings"`
}

// handleRecompute handles POST /v1/scopes/{scope}/recompute.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	scope, err := requirePath(op, r, "scope")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.RecomputeStandings(r.Context(), scope); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStandings handles GET /v1/scopes/{scope}/standings?limit=.
func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.standings"
	scope, err := requirePath(op, r, "scope")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intQuery(op, r, "limit", defaultStandingsLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.deps.Standings(r.Context(), scope, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []model.Standing{}
	}
	writeJSON(w, http.StatusOK, standingsResponse{Scope: scope, Standings: rows})
}

// handleStanding handles GET /v1/scopes/{scope}/standings/{player}.
func (s *Server) handleStanding(w http.ResponseWriter, r *http.Request) {
	const op = "api.standing"
	scope, err := requirePath(op, r, "scope")
	if err != nil {
		writeError(w, err)
		return
	}
	player, err := requirePath(op, r, "player")
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := s.deps.Standing(r.Context(), scope, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleVerify handles POST /v1/scopes/{scope}/players/{player}/verify.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify"
	scope, err := requirePath(op, r, "scope")
	if err != nil {
		writeError(w, err)
		return
	}
	player, err := requirePath(op, r, "player")
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := s.deps.VerifyPlayer(r.Context(), scope, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}
