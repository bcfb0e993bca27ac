package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON_SetsContentTypeAndStatus(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]string{"status": "ok"})

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
}

func TestRespondJSON_NilDataLeavesBodyEmpty(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "something went wrong")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["error"] != "something went wrong" {
		t.Errorf("unexpected error message '%s'", result["error"])
	}
}

func TestSanitizeForLog_StripsNewlines(t *testing.T) {
	in := "user\nid\rwith breaks"
	if got := sanitizeForLog(in); got != "useridwith breaks" {
		t.Errorf("unexpected sanitized value '%s'", got)
	}
}

func TestReadImageUpload_ReturnsFileBytes(t *testing.T) {
	payload := []byte("image-bytes")
	req := multipartImageRequest(t, "/upload", nil, payload)

	data, err := readImageUpload(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("expected payload roundtrip, got '%s'", data)
	}
}

func TestReadImageUpload_MissingImagePart(t *testing.T) {
	req := multipartImageRequest(t, "/upload", map[string]string{"user_id": "u1"}, nil)

	if _, err := readImageUpload(req); err == nil {
		t.Error("expected error for missing image part")
	}
}

func TestReadImageUpload_EmptyFile(t *testing.T) {
	req := multipartImageRequest(t, "/upload", nil, []byte{})

	if _, err := readImageUpload(req); err == nil {
		t.Error("expected error for empty image file")
	}
}

func TestHealthCheck_ReturnsOK(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()

	HealthCheck(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}
