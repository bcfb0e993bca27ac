package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Recognition.EmbeddingDim != 128 {
		t.Errorf("expected default embedding dim 128, got %d", cfg.Recognition.EmbeddingDim)
	}
	if cfg.Recognition.MaxFacesPerUser != 5 {
		t.Errorf("expected default max faces 5, got %d", cfg.Recognition.MaxFacesPerUser)
	}
	if cfg.Recognition.Threshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %f", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.MaxDistance != 1.0 {
		t.Errorf("expected default max distance 1.0, got %f", cfg.Recognition.MaxDistance)
	}
	if cfg.JWT.TTLSeconds != 3600 {
		t.Errorf("expected default JWT TTL 3600, got %d", cfg.JWT.TTLSeconds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "512")
	t.Setenv("MAX_FACES_PER_USER", "3")
	t.Setenv("AUTH_THRESHOLD", "0.75")
	t.Setenv("DATABASE_URL", "postgres://localhost/face_login")

	cfg := Load()

	if cfg.Recognition.EmbeddingDim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Recognition.EmbeddingDim)
	}
	if cfg.Recognition.MaxFacesPerUser != 3 {
		t.Errorf("expected max faces 3, got %d", cfg.Recognition.MaxFacesPerUser)
	}
	if cfg.Recognition.Threshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %f", cfg.Recognition.Threshold)
	}
	if cfg.Database.URL != "postgres://localhost/face_login" {
		t.Errorf("unexpected database URL %q", cfg.Database.URL)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "not-a-number")
	t.Setenv("AUTH_THRESHOLD", "-1")

	cfg := Load()

	if cfg.Recognition.EmbeddingDim != 128 {
		t.Errorf("invalid env should fall back to 128, got %d", cfg.Recognition.EmbeddingDim)
	}
	if cfg.Recognition.Threshold != 0.6 {
		t.Errorf("invalid env should fall back to 0.6, got %f", cfg.Recognition.Threshold)
	}
}
