package api

import (
	"net/http"

	service "github.com/okian/cuerank/internal/app"
	"github.com/okian/cuerank/internal/domain/recommend"
)

type clubsResponse struct {
	Clubs []recommend.ScoredVenue `json:"clubs"`
}

type tournamentsResponse struct {
	Tournaments []recommend.ScoredTournament `json:"tournaments"`
}

// handleRecommendClubs handles POST /v1/recommendations/clubs.
func (s *Server) handleRecommendClubs(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend_clubs"
	var req service.ClubRecommendationRequest
	if err := decode(op, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Limit < 0 {
		writeError(w, badRequest(op, "limit must not be negative"))
		return
	}
	out, err := s.deps.RecommendClubs(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []recommend.ScoredVenue{}
	}
	writeJSON(w, http.StatusOK, clubsResponse{Clubs: out})
}

// handleRecommendTournaments handles POST /v1/recommendations/tournaments.
func (s *Server) handleRecommendTournaments(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend_tournaments"
	var req service.TournamentRecommendationRequest
	if err := decode(op, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Limit < 0 {
		writeError(w, badRequest(op, "limit must not be negative"))
		return
	}
	out, err := s.deps.RecommendTournaments(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []recommend.ScoredTournament{}
	}
	writeJSON(w, http.StatusOK, tournamentsResponse{Tournaments: out})
}
