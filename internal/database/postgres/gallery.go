package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/pgvector/pgvector-go"
)

// FaceRepository provides PostgreSQL-backed gallery storage with an optional
// in-memory HNSW index for the advisory similar-faces lookup. The
// authentication decision path always reads exact data from PostgreSQL.
type FaceRepository struct {
	pool          *Pool
	dim           int
	maxPerUser    int
	hnswIndex     *database.HNSWIndex
	hnswEnabled   bool
	hnswIndexPath string // path to persist the HNSW index (optional)
	hnswMu        sync.RWMutex
}

// NewFaceRepository creates a new PostgreSQL gallery repository enforcing the
// given embedding dimension and per-user capacity.
func NewFaceRepository(pool *Pool, dim, maxPerUser int) *FaceRepository {
	return &FaceRepository{pool: pool, dim: dim, maxPerUser: maxPerUser}
}

// Add stores a new face record for a user. A per-user advisory lock
// serializes the capacity check and the insert, so concurrent registrations
// for the same user never push the count past the maximum.
func (r *FaceRepository) Add(
	ctx context.Context, userID string, embedding []float32, sourceRef, phash string,
) (*database.FaceRecord, error) {
	if len(embedding) != r.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", database.ErrInvalidEmbedding, len(embedding), r.dim)
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// hashtext maps the user ID onto the advisory lock keyspace. The lock
	// is released automatically at commit or rollback.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", userID); err != nil {
		return nil, fmt.Errorf("acquire user lock: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM faces WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("count user faces: %w", err)
	}
	if count >= r.maxPerUser {
		return nil, database.ErrCapacityExceeded
	}

	rec := &database.FaceRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Embedding: embedding,
		Dim:       r.dim,
		SourceRef: sourceRef,
		PHash:     phash,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO faces (id, user_id, embedding, dim, source_ref, phash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.UserID, pgvector.NewVector(rec.Embedding), rec.Dim, rec.SourceRef, rec.PHash, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert face: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit face insert: %w", err)
	}

	r.hnswMu.RLock()
	if r.hnswEnabled && r.hnswIndex != nil {
		if err := r.hnswIndex.Add(rec); err != nil {
			fmt.Printf("Warning: failed to add face to HNSW index: %v\n", err)
		}
	}
	r.hnswMu.RUnlock()

	return rec, nil
}

// GetByUser retrieves all face records for a user, oldest first.
func (r *FaceRepository) GetByUser(ctx context.Context, userID string) ([]database.FaceRecord, error) {
	query := `
		SELECT id, user_id, embedding, dim, source_ref, phash, created_at
		FROM faces
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user faces: %w", err)
	}
	defer rows.Close()

	return scanFaceRecords(rows)
}

// CountByUser returns the number of face records a user holds.
func (r *FaceRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user faces: %w", err)
	}
	return count, nil
}

// Count returns the total number of face records stored.
func (r *FaceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// AllGrouped returns a point-in-time snapshot of the whole gallery keyed by
// user ID. A single query keeps the snapshot consistent.
func (r *FaceRepository) AllGrouped(ctx context.Context) (map[string][]database.FaceRecord, error) {
	records, err := r.allRecords(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]database.FaceRecord)
	for _, rec := range records {
		grouped[rec.UserID] = append(grouped[rec.UserID], rec)
	}
	return grouped, nil
}

// DeleteByUser removes all of a user's face records and returns the deleted
// record IDs so the HNSW index can drop them too.
func (r *FaceRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, "DELETE FROM faces WHERE user_id = $1 RETURNING id", userID)
	if err != nil {
		return nil, fmt.Errorf("delete user faces: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted face ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted face IDs: %w", err)
	}

	r.hnswMu.RLock()
	if r.hnswEnabled && r.hnswIndex != nil {
		for _, id := range ids {
			r.hnswIndex.Delete(id)
		}
	}
	r.hnswMu.RUnlock()

	return ids, nil
}

// FindSimilar finds the faces closest to the query embedding by L2 distance.
// Uses the in-memory HNSW index if enabled, otherwise falls back to
// PostgreSQL.
func (r *FaceRepository) FindSimilar(
	ctx context.Context, embedding []float32, limit int,
) ([]database.FaceRecord, []float64, error) {
	r.hnswMu.RLock()
	hnswEnabled := r.hnswEnabled && r.hnswIndex != nil
	r.hnswMu.RUnlock()

	if hnswEnabled {
		return r.findSimilarHNSW(embedding, limit)
	}

	return r.findSimilarPostgres(ctx, embedding, limit)
}

// findSimilarHNSW uses the in-memory HNSW index for similarity search.
func (r *FaceRepository) findSimilarHNSW(
	embedding []float32, limit int,
) ([]database.FaceRecord, []float64, error) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndex == nil {
		return nil, nil, errors.New("HNSW index not initialized")
	}

	// Over-fetch to compensate for soft-deleted records filtered below.
	ids, dists, err := r.hnswIndex.Search(embedding, limit*database.HNSWSearchMultiplier)
	if err != nil {
		return nil, nil, fmt.Errorf("HNSW search: %w", err)
	}

	records := make([]database.FaceRecord, 0, limit)
	distances := make([]float64, 0, limit)
	for i, id := range ids {
		if len(records) >= limit {
			break
		}
		rec := r.hnswIndex.GetRecord(id)
		if rec == nil {
			continue
		}
		records = append(records, *rec)
		distances = append(distances, dists[i])
	}

	return records, distances, nil
}

// findSimilarPostgres lets pgvector order by exact L2 distance.
func (r *FaceRepository) findSimilarPostgres(
	ctx context.Context, embedding []float32, limit int,
) ([]database.FaceRecord, []float64, error) {
	query := `
		SELECT id, user_id, embedding, dim, source_ref, phash, created_at,
		       embedding <-> $1 AS distance
		FROM faces
		ORDER BY distance
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar faces: %w", err)
	}
	defer rows.Close()

	var records []database.FaceRecord
	var distances []float64
	for rows.Next() {
		var rec database.FaceRecord
		var vec pgvector.Vector
		var distance float64
		err := rows.Scan(&rec.ID, &rec.UserID, &vec, &rec.Dim, &rec.SourceRef, &rec.PHash, &rec.CreatedAt, &distance)
		if err != nil {
			return nil, nil, fmt.Errorf("scan similar face: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate similar faces: %w", err)
	}

	return records, distances, nil
}

// allRecords loads the entire gallery in one query.
func (r *FaceRepository) allRecords(ctx context.Context) ([]database.FaceRecord, error) {
	query := `
		SELECT id, user_id, embedding, dim, source_ref, phash, created_at
		FROM faces
		ORDER BY user_id, created_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all faces: %w", err)
	}
	defer rows.Close()

	return scanFaceRecords(rows)
}

// scanFaceRecords scans face rows in column order id, user_id, embedding,
// dim, source_ref, phash, created_at.
func scanFaceRecords(rows *sql.Rows) ([]database.FaceRecord, error) {
	var records []database.FaceRecord
	for rows.Next() {
		var rec database.FaceRecord
		var vec pgvector.Vector
		err := rows.Scan(&rec.ID, &rec.UserID, &vec, &rec.Dim, &rec.SourceRef, &rec.PHash, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan face record: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face records: %w", err)
	}
	return records, nil
}

// EnableHNSW builds (or loads from disk) the in-memory HNSW index over the
// gallery. A saved index is only reused when its node count still matches
// the database.
func (r *FaceRepository) EnableHNSW(ctx context.Context, indexPath string) error {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndexPath = indexPath

	records, err := r.allRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	if indexPath != "" {
		idx := database.NewHNSWIndex()
		if err := idx.Load(indexPath); err == nil && !idx.IsEmpty() && idx.GraphLen() == len(records) {
			idx.RebuildFromRecords(records)
			r.hnswIndex = idx
			r.hnswEnabled = true
			return nil
		}
	}

	r.hnswIndex = database.NewHNSWIndex()
	if err := r.hnswIndex.BuildFromRecords(records); err != nil {
		return fmt.Errorf("failed to build HNSW index: %w", err)
	}
	r.hnswIndex.SetPath(indexPath)

	if indexPath != "" && len(records) > 0 {
		if err := r.hnswIndex.Save(); err != nil {
			fmt.Printf("Warning: failed to save HNSW index to disk: %v\n", err)
		}
	}

	r.hnswEnabled = true
	return nil
}

// DisableHNSW disables the in-memory HNSW index, falling back to PostgreSQL queries.
func (r *FaceRepository) DisableHNSW() {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()
	r.hnswEnabled = false
	r.hnswIndex = nil
}

// IsHNSWEnabled returns whether the in-memory HNSW index is enabled.
func (r *FaceRepository) IsHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// HNSWCount returns the number of faces in the HNSW index.
func (r *FaceRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// RebuildHNSW rebuilds the HNSW index from PostgreSQL data.
func (r *FaceRepository) RebuildHNSW(ctx context.Context) error {
	r.hnswMu.RLock()
	indexPath := r.hnswIndexPath
	r.hnswMu.RUnlock()

	r.hnswMu.Lock()
	r.hnswIndex = nil
	r.hnswEnabled = false
	r.hnswMu.Unlock()

	return r.EnableHNSW(ctx, indexPath)
}

// SaveHNSWIndex saves the current HNSW index to disk (if path configured).
func (r *FaceRepository) SaveHNSWIndex() error {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndexPath == "" || r.hnswIndex == nil {
		return nil
	}
	return r.hnswIndex.Save()
}
