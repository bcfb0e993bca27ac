package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/database/mariadb"
	"github.com/kozaktomas/face-login/internal/database/postgres"
	"github.com/kozaktomas/face-login/internal/encoder"
	"github.com/kozaktomas/face-login/internal/recognition"
)

// setupBackend connects to PostgreSQL, runs migrations, and registers the
// gallery and audit repositories. The returned cleanup closes the pool.
func setupBackend(ctx context.Context, cfg *config.Config) (func(), error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	cleanup, err := postgres.Initialize(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return cleanup, nil
}

// connectDirectory opens the external user directory if one is configured.
// Without a DSN the engine runs directory-less: any user ID can enroll.
func connectDirectory(cfg *config.Config) (database.UserReader, func(), error) {
	if cfg.Directory.DatabaseURL == "" {
		return nil, func() {}, nil
	}

	pool, err := mariadb.NewPool(cfg.Directory.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to user directory: %w", err)
	}
	return mariadb.NewUserRepository(pool), func() { pool.Close() }, nil
}

// buildEngine wires the decision engine from the registered backends, the
// encoder service and the optional user directory and source image store.
func buildEngine(cfg *config.Config, users database.UserReader) (*recognition.Engine, error) {
	capability, err := encoder.NewHTTPClient(cfg.Encoder.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder client: %w", err)
	}

	gallery, err := database.GetGalleryWriter()
	if err != nil {
		return nil, err
	}
	audit, err := database.GetAuditWriter()
	if err != nil {
		return nil, err
	}

	var sources recognition.SourceStore
	if cfg.Storage.FaceImagesDir != "" {
		store, err := recognition.NewFileSourceStore(cfg.Storage.FaceImagesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create source image store: %w", err)
		}
		sources = store
	}

	opts := recognition.Options{
		EmbeddingDim:    cfg.Recognition.EmbeddingDim,
		MaxFacesPerUser: cfg.Recognition.MaxFacesPerUser,
		Threshold:       cfg.Recognition.Threshold,
		MaxDistance:     cfg.Recognition.MaxDistance,
	}

	return recognition.NewEngine(opts, capability, gallery, audit, users, sources), nil
}
