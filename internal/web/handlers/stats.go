package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-login/internal/database"
)

// StatsHandler reports gallery and audit log statistics.
type StatsHandler struct {
	gallery database.GalleryReader
	audit   database.AuditReader
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(gallery database.GalleryReader, audit database.AuditReader) *StatsHandler {
	return &StatsHandler{
		gallery: gallery,
		audit:   audit,
	}
}

// StatsResponse summarizes the stored state.
type StatsResponse struct {
	FaceCount     int  `json:"face_count"`
	EnrolledUsers int  `json:"enrolled_users"`
	AttemptCount  int  `json:"attempt_count"`
	HNSWEnabled   bool `json:"hnsw_enabled"`
	HNSWCount     int  `json:"hnsw_count"`
}

// Get returns gallery and audit counters.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	faceCount, err := h.gallery.Count(r.Context())
	if err != nil {
		log.Printf("counting faces failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	grouped, err := h.gallery.AllGrouped(r.Context())
	if err != nil {
		log.Printf("loading gallery failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	attemptCount, err := h.audit.Count(r.Context())
	if err != nil {
		log.Printf("counting attempts failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	response := StatsResponse{
		FaceCount:     faceCount,
		EnrolledUsers: len(grouped),
		AttemptCount:  attemptCount,
	}
	if rebuilder := database.GetGalleryHNSWRebuilder(); rebuilder != nil {
		response.HNSWEnabled = rebuilder.IsHNSWEnabled()
		response.HNSWCount = rebuilder.HNSWCount()
	}

	respondJSON(w, http.StatusOK, response)
}
