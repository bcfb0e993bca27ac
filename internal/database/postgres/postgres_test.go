//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testDim = 8

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(seed float32) []float32 {
	emb := make([]float32, testDim)
	for i := range emb {
		emb[i] = seed + float32(i)/float32(testDim)
	}
	return emb
}

func TestFaceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewFaceRepository(pool, testDim, 5)

	t.Run("AddAndGetByUser", func(t *testing.T) {
		rec, err := repo.Add(ctx, "alice", testEmbedding(0.1), "img-1", "")
		if err != nil {
			t.Fatalf("Failed to add face: %v", err)
		}
		if rec.ID == "" {
			t.Error("Expected generated record ID")
		}

		faces, err := repo.GetByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("Failed to get faces: %v", err)
		}
		if len(faces) != 1 {
			t.Fatalf("Expected 1 face, got %d", len(faces))
		}
		if len(faces[0].Embedding) != testDim {
			t.Errorf("Expected embedding dim %d, got %d", testDim, len(faces[0].Embedding))
		}
		if faces[0].SourceRef != "img-1" {
			t.Errorf("Expected source ref 'img-1', got '%s'", faces[0].SourceRef)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := repo.Add(ctx, "alice", make([]float32, testDim+1), "", "")
		if !errors.Is(err, database.ErrInvalidEmbedding) {
			t.Errorf("Expected ErrInvalidEmbedding, got %v", err)
		}
	})

	t.Run("CapacityLimit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, err := repo.Add(ctx, "bob", testEmbedding(float32(i)), "", "")
			if err != nil {
				t.Fatalf("Failed to add face %d: %v", i, err)
			}
		}

		_, err := repo.Add(ctx, "bob", testEmbedding(9), "", "")
		if !errors.Is(err, database.ErrCapacityExceeded) {
			t.Errorf("Expected ErrCapacityExceeded, got %v", err)
		}

		count, err := repo.CountByUser(ctx, "bob")
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 5 {
			t.Errorf("Expected 5 faces, got %d", count)
		}
	})

	t.Run("ConcurrentAddsRespectCapacity", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				repo.Add(ctx, "carol", testEmbedding(float32(i)), "", "")
			}(i)
		}
		wg.Wait()

		count, err := repo.CountByUser(ctx, "carol")
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 5 {
			t.Errorf("Expected exactly 5 faces after concurrent adds, got %d", count)
		}
	})

	t.Run("AllGrouped", func(t *testing.T) {
		grouped, err := repo.AllGrouped(ctx)
		if err != nil {
			t.Fatalf("Failed to load grouped gallery: %v", err)
		}
		if len(grouped["alice"]) != 1 {
			t.Errorf("Expected 1 face for alice, got %d", len(grouped["alice"]))
		}
		if len(grouped["bob"]) != 5 {
			t.Errorf("Expected 5 faces for bob, got %d", len(grouped["bob"]))
		}
	})

	t.Run("FindSimilar", func(t *testing.T) {
		records, distances, err := repo.FindSimilar(ctx, testEmbedding(0.1), 3)
		if err != nil {
			t.Fatalf("Failed to find similar: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("Expected 3 results, got %d", len(records))
		}
		if records[0].UserID != "alice" {
			t.Errorf("Expected closest face to belong to alice, got %s", records[0].UserID)
		}
		if distances[0] > 1e-5 {
			t.Errorf("Expected near-zero distance for exact query, got %f", distances[0])
		}
		if distances[1] < distances[0] {
			t.Error("Expected distances in ascending order")
		}
	})

	t.Run("HNSWSearch", func(t *testing.T) {
		if err := repo.EnableHNSW(ctx, ""); err != nil {
			t.Fatalf("Failed to enable HNSW: %v", err)
		}
		if !repo.IsHNSWEnabled() {
			t.Fatal("Expected HNSW to be enabled")
		}

		records, _, err := repo.FindSimilar(ctx, testEmbedding(0.1), 3)
		if err != nil {
			t.Fatalf("Failed to find similar via HNSW: %v", err)
		}
		if len(records) == 0 || records[0].UserID != "alice" {
			t.Errorf("Expected alice as closest HNSW result, got %+v", records)
		}

		repo.DisableHNSW()
	})

	t.Run("DeleteByUser", func(t *testing.T) {
		ids, err := repo.DeleteByUser(ctx, "bob")
		if err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if len(ids) != 5 {
			t.Errorf("Expected 5 deleted IDs, got %d", len(ids))
		}

		count, err := repo.CountByUser(ctx, "bob")
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected 0 faces after delete, got %d", count)
		}
	})
}

func TestAuditRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewAuditRepository(pool)

	userID := "alice"
	conf := 0.92

	attempts := []database.AuthAttempt{
		{ID: uuid.NewString(), Success: false, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), MatchedUserID: &userID, Success: true, Confidence: &conf, CreatedAt: time.Now().UTC()},
	}
	for _, a := range attempts {
		if err := repo.Append(ctx, a); err != nil {
			t.Fatalf("Failed to append attempt: %v", err)
		}
	}

	t.Run("HistoryMostRecentFirst", func(t *testing.T) {
		history, err := repo.History(ctx, database.HistoryFilter{Limit: 10})
		if err != nil {
			t.Fatalf("Failed to query history: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("Expected 2 attempts, got %d", len(history))
		}
		if history[0].ID != attempts[1].ID {
			t.Error("Expected most recent attempt first")
		}
		if history[1].MatchedUserID != nil {
			t.Error("Expected nil matched user for failed attempt")
		}
		if history[0].Confidence == nil || *history[0].Confidence != conf {
			t.Errorf("Expected confidence %f, got %v", conf, history[0].Confidence)
		}
	})

	t.Run("HistoryFilterByUser", func(t *testing.T) {
		history, err := repo.History(ctx, database.HistoryFilter{UserID: "alice", Limit: 10})
		if err != nil {
			t.Fatalf("Failed to query history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("Expected 1 attempt for alice, got %d", len(history))
		}
		if !history[0].Success {
			t.Error("Expected successful attempt")
		}
	})

	t.Run("HistoryLimit", func(t *testing.T) {
		history, err := repo.History(ctx, database.HistoryFilter{Limit: 1})
		if err != nil {
			t.Fatalf("Failed to query history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("Expected 1 attempt with limit 1, got %d", len(history))
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 attempts, got %d", count)
		}
	})
}
