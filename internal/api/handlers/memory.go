package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/credo/internal/config"
	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/service"
	"github.com/Harshitk-cp/credo/internal/similarity"
)

type MemoryHandler struct {
	svc *service.MemoryService
}

func NewMemoryHandler(svc *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

func (h *MemoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

type listMemoriesResponse struct {
	Memories []domain.MemoryRecord `json:"memories"`
	Count    int                   `json:"count"`
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	filter := parseFilter(r)
	limit := queryInt(r, "limit", 100)

	memories, err := h.svc.List(r.Context(), agentID, filter, limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if memories == nil {
		memories = []domain.MemoryRecord{}
	}
	writeJSON(w, http.StatusOK, listMemoriesResponse{Memories: memories, Count: len(memories)})
}

type recallMemoriesResponse struct {
	Memories []domain.MemoryWithScore `json:"memories"`
	Query    string                   `json:"query"`
	Count    int                      `json:"count"`
}

func (h *MemoryHandler) Recall(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, recallMemoriesResponse{
		Memories: results,
		Query:    query,
		Count:    len(results),
	})
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeKindError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteManyRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *MemoryHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	var req deleteManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	deleted, err := h.svc.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// recallQuery builds a similarity query from request parameters, falling
// back to the configured threshold and result-count defaults.
func recallQuery(r *http.Request) similarity.Query {
	return similarity.Query{
		Text:            r.URL.Query().Get("query"),
		AgentID:         r.URL.Query().Get("agent_id"),
		Threshold:       float32(queryFloat(r, "threshold", config.SimilarityThreshold())),
		Limit:           queryInt(r, "top_k", config.SimilarityMaxResults()),
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
	}
}

// parseFilter reads FilterOptions from query parameters.
func parseFilter(r *http.Request) domain.FilterOptions {
	q := r.URL.Query()
	filter := domain.DefaultFilterOptions()

	filter.Category = q.Get("category")
	filter.Source = q.Get("source")

	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = &t
		}
	}
	if v := q.Get("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}
	if v := q.Get("min_relevance"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			score := float32(f)
			filter.MinRelevanceScore = &score
		}
	}
	if v := q.Get("max_relevance"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			score := float32(f)
			filter.MaxRelevanceScore = &score
		}
	}
	if v := q.Get("min_category_confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			conf := float32(f)
			filter.MinCategoryConfidence = &conf
		}
	}
	if v := q.Get("min_access_count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MinAccessCount = &n
		}
	}
	if v := q.Get("max_age_seconds"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MaxAgeSeconds = &n
		}
	}
	if q.Get("exclude_conflicted") == "true" {
		filter.ExcludeConflicted = true
	}
	if q.Get("include_inactive") == "true" {
		filter.ActiveOnly = false
	}
	return filter
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
