package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-login/internal/config"
)

func TestConfigGet_ReturnsRecognitionParameters(t *testing.T) {
	cfg := &config.Config{
		Recognition: config.RecognitionConfig{
			EmbeddingDim:    128,
			MaxFacesPerUser: 5,
			Threshold:       0.6,
			MaxDistance:     1.0,
		},
	}
	handler := NewConfigHandler(cfg)

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var response ConfigResponse
	decodeJSON(t, recorder, &response)
	if response.EmbeddingDim != 128 {
		t.Errorf("expected embedding dim 128, got %d", response.EmbeddingDim)
	}
	if response.MaxFacesPerUser != 5 {
		t.Errorf("expected max faces 5, got %d", response.MaxFacesPerUser)
	}
	if response.Threshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %f", response.Threshold)
	}
	if response.DirectoryAttached {
		t.Error("expected no directory attached without DSN")
	}
}
