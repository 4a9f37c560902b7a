package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/retrieval"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// DoctorSearcher answers free-text symptom queries.
type DoctorSearcher interface {
	GenerateVoiceBotResponse(ctx context.Context, query string) (*retrieval.Response, error)
}

// KnowledgeReader exposes the static hospital directory.
type KnowledgeReader interface {
	DoctorByName(name string) (knowledge.Doctor, bool)
	DoctorsBySpecialty(specialty string) []knowledge.Doctor
	HospitalInfo() knowledge.Hospital
}

// DoctorHandler serves doctor search and directory lookups.
type DoctorHandler struct {
	searcher DoctorSearcher
	kb       KnowledgeReader
	logger   *logging.Logger
}

func NewDoctorHandler(searcher DoctorSearcher, kb KnowledgeReader, logger *logging.Logger) *DoctorHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DoctorHandler{searcher: searcher, kb: kb, logger: logger}
}

type searchRequest struct {
	Symptoms string `json:"symptoms"`
}

// SearchDoctors handles POST /api/search-doctors. Gated queries are a normal
// 200 response with success=false.
func (h *DoctorHandler) SearchDoctors(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		jsonError(w, "Symptoms are required", http.StatusBadRequest)
		return
	}

	resp, err := h.searcher.GenerateVoiceBotResponse(r.Context(), req.Symptoms)
	if err != nil {
		h.logger.Error("doctor search failed", "error", err, "query", req.Symptoms)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !resp.Success {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"query":   req.Symptoms,
		"results": resp,
	})
}

// GetDoctor handles GET /api/doctor/{name}.
func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	doctor, ok := h.kb.DoctorByName(name)
	if !ok {
		jsonError(w, "Doctor not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "doctor": doctor})
}

// GetSpecialty handles GET /api/specialty/{specialty}.
func (h *DoctorHandler) GetSpecialty(w http.ResponseWriter, r *http.Request) {
	specialty := strings.TrimSpace(chi.URLParam(r, "specialty"))
	doctors := h.kb.DoctorsBySpecialty(specialty)
	if doctors == nil {
		doctors = []knowledge.Doctor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"specialty": specialty,
		"count":     len(doctors),
		"doctors":   doctors,
	})
}

// HospitalInfo handles GET /api/hospital/info.
func (h *DoctorHandler) HospitalInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "info": h.kb.HospitalInfo()})
}
