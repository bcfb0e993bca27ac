package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/recognition"
	"github.com/kozaktomas/face-login/internal/web/middleware"
)

// RecognitionHandler handles face registration and authentication endpoints.
type RecognitionHandler struct {
	engine *recognition.Engine
	tokens *middleware.TokenManager
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(engine *recognition.Engine, tokens *middleware.TokenManager) *RecognitionHandler {
	return &RecognitionHandler{
		engine: engine,
		tokens: tokens,
	}
}

// RegisterResponse reports the gallery state after an enrollment.
type RegisterResponse struct {
	UserID    string `json:"user_id"`
	FaceCount int    `json:"face_count"`
}

// AuthenticateResponse is an authentication decision plus the access token
// issued for an accepted attempt.
type AuthenticateResponse struct {
	recognition.Decision
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AttemptResponse is one audit log entry.
type AttemptResponse struct {
	ID            string    `json:"id"`
	MatchedUserID *string   `json:"matched_user_id"`
	Success       bool      `json:"success"`
	Confidence    *float64  `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// SimilarFaceResponse is one advisory similarity result.
type SimilarFaceResponse struct {
	RecordID  string    `json:"record_id"`
	UserID    string    `json:"user_id"`
	Distance  float64   `json:"distance"`
	CreatedAt time.Time `json:"created_at"`
}

// Register enrolls a face image for a user.
func (h *RecognitionHandler) Register(w http.ResponseWriter, r *http.Request) {
	image, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	count, err := h.engine.Register(r.Context(), userID, image)
	if err != nil {
		h.respondRegisterError(w, userID, err)
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{
		UserID:    userID,
		FaceCount: count,
	})
}

func (h *RecognitionHandler) respondRegisterError(w http.ResponseWriter, userID string, err error) {
	if reason, ok := recognition.IsQualityError(err); ok {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  err.Error(),
			"reason": string(reason),
		})
		return
	}

	switch {
	case errors.Is(err, recognition.ErrUnknownUser):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrCapacityExceeded):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, recognition.ErrDuplicateImage):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidEmbedding):
		respondError(w, http.StatusBadGateway, "encoder returned an unexpected embedding size")
	default:
		log.Printf("register failed for user %s: %v", sanitizeForLog(userID), err)
		respondError(w, http.StatusInternalServerError, "registration failed")
	}
}

// Authenticate matches a probe image against the gallery. An accepted
// attempt also carries a freshly issued access token when token issuance is
// configured.
func (h *RecognitionHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	image, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.engine.Authenticate(r.Context(), image)
	if err != nil {
		if reason, ok := recognition.IsQualityError(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  err.Error(),
				"reason": string(reason),
			})
			return
		}
		if errors.Is(err, recognition.ErrAuditWrite) {
			respondError(w, http.StatusInternalServerError, "authentication could not be recorded")
			return
		}
		log.Printf("authentication failed: %v", err)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	response := AuthenticateResponse{Decision: decision}
	if decision.Success && h.tokens.Enabled() {
		token, expiresAt, err := h.tokens.Issue(*decision.MatchedUserID)
		if err != nil {
			log.Printf("token issuance failed: %v", err)
			respondError(w, http.StatusInternalServerError, "token issuance failed")
			return
		}
		response.Token = token
		response.ExpiresAt = &expiresAt
	}

	respondJSON(w, http.StatusOK, response)
}

// History returns recorded authentication attempts, most recent first.
// Supports optional user_id and limit query parameters.
func (h *RecognitionHandler) History(w http.ResponseWriter, r *http.Request) {
	filter := database.HistoryFilter{
		UserID: r.URL.Query().Get("user_id"),
		Limit:  database.DefaultHistoryLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	attempts, err := h.engine.History(r.Context(), filter)
	if err != nil {
		log.Printf("history query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	response := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		response = append(response, AttemptResponse{
			ID:            a.ID,
			MatchedUserID: a.MatchedUserID,
			Success:       a.Success,
			Confidence:    a.Confidence,
			CreatedAt:     a.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"attempts": response})
}

// Similar finds the gallery faces closest to the uploaded image. Advisory
// only; the lookup is never audited.
func (h *RecognitionHandler) Similar(w http.ResponseWriter, r *http.Request) {
	image, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if raw := r.FormValue("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	records, distances, err := h.engine.SimilarFaces(r.Context(), image, limit)
	if err != nil {
		if reason, ok := recognition.IsQualityError(err); ok {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  err.Error(),
				"reason": string(reason),
			})
			return
		}
		log.Printf("similarity lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "similarity lookup failed")
		return
	}

	response := make([]SimilarFaceResponse, 0, len(records))
	for i, rec := range records {
		response = append(response, SimilarFaceResponse{
			RecordID:  rec.ID,
			UserID:    rec.UserID,
			Distance:  distances[i],
			CreatedAt: rec.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"results": response})
}
