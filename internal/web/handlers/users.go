package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/recognition"
)

// UsersHandler exposes the external user directory together with per-user
// gallery state. The directory itself is read-only; only gallery records can
// be removed here.
type UsersHandler struct {
	users   database.UserReader // nil when no directory is configured
	gallery database.GalleryReader
	engine  *recognition.Engine
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(users database.UserReader, gallery database.GalleryReader, engine *recognition.Engine) *UsersHandler {
	return &UsersHandler{
		users:   users,
		gallery: gallery,
		engine:  engine,
	}
}

// UserResponse is a directory user with their enrollment state.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	FaceCount int       `json:"face_count"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns all active directory users with their face counts.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		respondError(w, http.StatusServiceUnavailable, "user directory is not configured")
		return
	}

	users, err := h.users.ListActive(r.Context())
	if err != nil {
		log.Printf("listing users failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		count, err := h.gallery.CountByUser(r.Context(), u.ID)
		if err != nil {
			log.Printf("counting faces for user %s failed: %v", sanitizeForLog(u.ID), err)
			respondError(w, http.StatusInternalServerError, "failed to count faces")
			return
		}
		response = append(response, UserResponse{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Active:    u.Active,
			FaceCount: count,
			CreatedAt: u.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": response})
}

// Get returns one directory user with their face count.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		respondError(w, http.StatusServiceUnavailable, "user directory is not configured")
		return
	}

	userID := chi.URLParam(r, "id")
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		log.Printf("loading user %s failed: %v", sanitizeForLog(userID), err)
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	count, err := h.gallery.CountByUser(r.Context(), user.ID)
	if err != nil {
		log.Printf("counting faces for user %s failed: %v", sanitizeForLog(userID), err)
		respondError(w, http.StatusInternalServerError, "failed to count faces")
		return
	}

	respondJSON(w, http.StatusOK, UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Active:    user.Active,
		FaceCount: count,
		CreatedAt: user.CreatedAt,
	})
}

// DeleteFaces removes all gallery records of a user, for account deletion
// cleanup. Audit entries are intentionally kept.
func (h *UsersHandler) DeleteFaces(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user id is required")
		return
	}

	ids, err := h.engine.RemoveUser(r.Context(), userID)
	if err != nil {
		log.Printf("deleting faces for user %s failed: %v", sanitizeForLog(userID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete faces")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"deleted": len(ids),
	})
}
