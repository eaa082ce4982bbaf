package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/service"
)

type BeliefHandler struct {
	svc *service.BeliefService
}

func NewBeliefHandler(svc *service.BeliefService) *BeliefHandler {
	return &BeliefHandler{svc: svc}
}

func (h *BeliefHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	belief, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

type listBeliefsResponse struct {
	Beliefs []domain.Belief `json:"beliefs"`
	Count   int             `json:"count"`
}

func (h *BeliefHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	limit := queryInt(r, "limit", 100)

	beliefs, err := h.svc.ListByAgent(r.Context(), agentID, includeInactive, limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if beliefs == nil {
		beliefs = []domain.Belief{}
	}
	writeJSON(w, http.StatusOK, listBeliefsResponse{Beliefs: beliefs, Count: len(beliefs)})
}

type recallBeliefsResponse struct {
	Beliefs []domain.BeliefWithScore `json:"beliefs"`
	Query   string                   `json:"query"`
	Count   int                      `json:"count"`
}

func (h *BeliefHandler) Recall(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	results, err := h.svc.Search(r.Context(), recallQuery(r))
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recallBeliefsResponse{
		Beliefs: results,
		Query:   query,
		Count:   len(results),
	})
}

func (h *BeliefHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		writeKindError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BeliefHandler) Deprecated(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")

	ids, err := h.svc.DeprecatedBeliefIDs(r.Context(), agentID)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"belief_ids": ids, "count": len(ids)})
}

type listConflictsResponse struct {
	Conflicts []domain.BeliefConflict `json:"conflicts"`
	Count     int                     `json:"count"`
}

func (h *BeliefHandler) ConflictsForBelief(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	conflicts, err := h.svc.ConflictsForBelief(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []domain.BeliefConflict{}
	}
	writeJSON(w, http.StatusOK, listConflictsResponse{Conflicts: conflicts, Count: len(conflicts)})
}

func (h *BeliefHandler) UnresolvedConflicts(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	limit := queryInt(r, "limit", 100)

	conflicts, err := h.svc.UnresolvedConflicts(r.Context(), agentID, limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []domain.BeliefConflict{}
	}
	writeJSON(w, http.StatusOK, listConflictsResponse{Conflicts: conflicts, Count: len(conflicts)})
}

type resolveConflictRequest struct {
	Resolution domain.ConflictResolution `json:"resolution"`
	Details    string                    `json:"details,omitempty"`
	Confidence float32                   `json:"confidence,omitempty"`
}

func (h *BeliefHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ResolveConflict(r.Context(), id, req.Resolution, req.Details, req.Confidence); err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}
