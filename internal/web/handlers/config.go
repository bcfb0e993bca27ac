package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse exposes the non-secret recognition parameters so clients
// can explain decisions ("accepted at 0.73 against threshold 0.6").
type ConfigResponse struct {
	EmbeddingDim      int     `json:"embedding_dim"`
	MaxFacesPerUser   int     `json:"max_faces_per_user"`
	Threshold         float64 `json:"threshold"`
	MaxDistance       float64 `json:"max_distance"`
	GalleryWritable   bool    `json:"gallery_writable"`
	DirectoryAttached bool    `json:"directory_attached"`
}

// Get returns the active configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	response := ConfigResponse{
		EmbeddingDim:      h.config.Recognition.EmbeddingDim,
		MaxFacesPerUser:   h.config.Recognition.MaxFacesPerUser,
		Threshold:         h.config.Recognition.Threshold,
		MaxDistance:       h.config.Recognition.MaxDistance,
		GalleryWritable:   database.IsInitialized(),
		DirectoryAttached: h.config.Directory.DatabaseURL != "",
	}

	respondJSON(w, http.StatusOK, response)
}
