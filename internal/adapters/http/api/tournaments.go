package api

import (
	"net/http"
	"time"

	"github.com/okian/cuerank/internal/domain/placement"
)

type finalizeRequest struct {
	TierCode     string               `json:"tier_code"`
	ClubID       string               `json:"club_id,omitempty"`
	SeasonID     string               `json:"season_id,omitempty"`
	Participants int                  `json:"participants"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
	Finishers    []placement.Finisher `json:"finishers"`
}

// handleFinalize handles POST /v1/tournaments/{id}/finalize. A first
// finalization answers 201, a repeat 200 with duplicate set.
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize"
	id, err := requirePath(op, r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req finalizeRequest
	if err := decode(op, r, &req); err != nil {
		writeError(w, err)
		return
	}
	t := placement.Tournament{
		ID:           id,
		TierCode:     req.TierCode,
		ClubID:       req.ClubID,
		SeasonID:     req.SeasonID,
		Participants: req.Participants,
		Finishers:    req.Finishers,
	}
	if req.FinishedAt != nil {
		t.FinishedAt = req.FinishedAt.UTC()
	}

	res, err := s.deps.FinalizeTournament(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}
