package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/service"
)

type GraphHandler struct {
	svc           *service.GraphService
	relationships domain.RelationshipStore
}

func NewGraphHandler(svc *service.GraphService, relationships domain.RelationshipStore) *GraphHandler {
	return &GraphHandler{svc: svc, relationships: relationships}
}

type createRelationshipRequest struct {
	SourceBeliefID    uuid.UUID               `json:"source_belief_id"`
	TargetBeliefID    uuid.UUID               `json:"target_belief_id"`
	AgentID           string                  `json:"agent_id"`
	Type              domain.RelationshipType `json:"type"`
	Strength          float32                 `json:"strength,omitempty"`
	Metadata          map[string]any          `json:"metadata,omitempty"`
	EffectiveFrom     *time.Time              `json:"effective_from,omitempty"`
	EffectiveUntil    *time.Time              `json:"effective_until,omitempty"`
	DeprecationReason string                  `json:"deprecation_reason,omitempty"`
	Priority          int                     `json:"priority,omitempty"`
}

func (h *GraphHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req createRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rel := &domain.BeliefRelationship{
		SourceBeliefID:    req.SourceBeliefID,
		TargetBeliefID:    req.TargetBeliefID,
		AgentID:           req.AgentID,
		Type:              req.Type,
		Strength:          req.Strength,
		Metadata:          req.Metadata,
		EffectiveFrom:     req.EffectiveFrom,
		EffectiveUntil:    req.EffectiveUntil,
		DeprecationReason: req.DeprecationReason,
		Priority:          req.Priority,
	}

	if err := h.svc.CreateRelationship(r.Context(), rel); err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

type listRelationshipsResponse struct {
	Relationships []domain.BeliefRelationship `json:"relationships"`
	Count         int                         `json:"count"`
}

func (h *GraphHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id parameter is required")
		return
	}
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	relationships, err := h.relationships.GetByAgent(r.Context(), agentID, activeOnly)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if relationships == nil {
		relationships = []domain.BeliefRelationship{}
	}
	writeJSON(w, http.StatusOK, listRelationshipsResponse{Relationships: relationships, Count: len(relationships)})
}

func (h *GraphHandler) DeactivateRelationship(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	if err := h.relationships.Deactivate(r.Context(), id); err != nil {
		writeKindError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chainResponse struct {
	Chain []domain.Belief `json:"chain"`
	Count int             `json:"count"`
}

func (h *GraphHandler) DeprecationChain(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	chain, err := h.svc.FindDeprecationChain(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chainResponse{Chain: chain, Count: len(chain)})
}

type relatedResponse struct {
	Beliefs []domain.Belief `json:"beliefs"`
	Depth   int             `json:"depth"`
	Count   int             `json:"count"`
}

func (h *GraphHandler) Related(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}
	depth := queryInt(r, "depth", 1)

	beliefs, err := h.svc.FindRelated(r.Context(), id, depth)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if beliefs == nil {
		beliefs = []domain.Belief{}
	}
	writeJSON(w, http.StatusOK, relatedResponse{Beliefs: beliefs, Depth: depth, Count: len(beliefs)})
}

type clustersResponse struct {
	Clusters [][]uuid.UUID `json:"clusters"`
	Count    int           `json:"count"`
}

func (h *GraphHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id parameter is required")
		return
	}
	threshold := float32(queryFloat(r, "strength", 0.5))

	clusters, err := h.svc.FindStronglyConnectedClusters(r.Context(), agentID, threshold)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if clusters == nil {
		clusters = [][]uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, clustersResponse{Clusters: clusters, Count: len(clusters)})
}

func (h *GraphHandler) Validate(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id parameter is required")
		return
	}

	report, err := h.svc.ValidateStructure(r.Context(), agentID)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
