package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/service"
)

type IngestHandler struct {
	svc *service.IngestionService
}

func NewIngestHandler(svc *service.IngestionService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

func (h *IngestHandler) decode(w http.ResponseWriter, r *http.Request) *domain.MemoryInput {
	var input domain.MemoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}
	return &input
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	input := h.decode(w, r)
	if input == nil {
		return
	}

	result, err := h.svc.Ingest(r.Context(), input)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *IngestHandler) DryRun(w http.ResponseWriter, r *http.Request) {
	input := h.decode(w, r)
	if input == nil {
		return
	}

	result, err := h.svc.DryRunIngest(r.Context(), input)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *IngestHandler) Validate(w http.ResponseWriter, r *http.Request) {
	input := h.decode(w, r)
	if input == nil {
		return
	}

	if err := h.svc.ValidateInput(input); err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *IngestHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Statistics())
}
