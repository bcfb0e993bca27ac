// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/facematch"
)

// MockGallery is an in-memory implementation of database.GalleryWriter.
type MockGallery struct {
	mu      sync.Mutex
	dim     int
	maxPer  int
	records map[string][]database.FaceRecord

	// Error injection
	AddError        error
	GetError        error
	AllGroupedError error
	DeleteError     error
}

// NewMockGallery creates a mock gallery with the given dimension and per-user cap.
func NewMockGallery(dim, maxPerUser int) *MockGallery {
	return &MockGallery{
		dim:     dim,
		maxPer:  maxPerUser,
		records: make(map[string][]database.FaceRecord),
	}
}

// Add stores a face record, enforcing dimension and capacity under one lock
// so concurrent enrollments serialize like the real backend.
func (m *MockGallery) Add(ctx context.Context, userID string, embedding []float32, sourceRef, phash string) (*database.FaceRecord, error) {
	if m.AddError != nil {
		return nil, m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(embedding) != m.dim {
		return nil, database.ErrInvalidEmbedding
	}
	if len(m.records[userID]) >= m.maxPer {
		return nil, database.ErrCapacityExceeded
	}

	rec := database.FaceRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Embedding: append([]float32(nil), embedding...),
		Dim:       len(embedding),
		SourceRef: sourceRef,
		PHash:     phash,
		CreatedAt: time.Now().UTC(),
	}
	m.records[userID] = append(m.records[userID], rec)
	return &rec, nil
}

// GetByUser retrieves all face records for a user.
func (m *MockGallery) GetByUser(ctx context.Context, userID string) ([]database.FaceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.FaceRecord(nil), m.records[userID]...), nil
}

// CountByUser returns the number of face records a user holds.
func (m *MockGallery) CountByUser(ctx context.Context, userID string) (int, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[userID]), nil
}

// AllGrouped returns a snapshot of the whole gallery keyed by user ID.
func (m *MockGallery) AllGrouped(ctx context.Context) (map[string][]database.FaceRecord, error) {
	if m.AllGroupedError != nil {
		return nil, m.AllGroupedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string][]database.FaceRecord, len(m.records))
	for userID, recs := range m.records {
		if len(recs) == 0 {
			continue
		}
		snapshot[userID] = append([]database.FaceRecord(nil), recs...)
	}
	return snapshot, nil
}

// Count returns the total number of face records stored.
func (m *MockGallery) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, recs := range m.records {
		total += len(recs)
	}
	return total, nil
}

// FindSimilar finds the closest faces to the query embedding by L2 distance.
func (m *MockGallery) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]database.FaceRecord, []float64, error) {
	if m.GetError != nil {
		return nil, nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		rec  database.FaceRecord
		dist float64
	}
	var all []scored
	for _, recs := range m.records {
		for _, rec := range recs {
			all = append(all, scored{rec, database.EuclideanDistance(embedding, rec.Embedding)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	records := make([]database.FaceRecord, len(all))
	distances := make([]float64, len(all))
	for i, s := range all {
		records[i] = s.rec
		distances[i] = s.dist
	}
	return records, distances, nil
}

// DeleteByUser removes all of a user's face records.
func (m *MockGallery) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	if m.DeleteError != nil {
		return nil, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.records[userID]))
	for _, rec := range m.records[userID] {
		ids = append(ids, rec.ID)
	}
	delete(m.records, userID)
	return ids, nil
}

// MockAudit is an in-memory implementation of database.AuditWriter.
type MockAudit struct {
	mu       sync.Mutex
	attempts []database.AuthAttempt

	// Error injection
	AppendError  error
	HistoryError error
}

// NewMockAudit creates an empty mock audit log.
func NewMockAudit() *MockAudit {
	return &MockAudit{}
}

// Append records one authentication attempt.
func (m *MockAudit) Append(ctx context.Context, attempt database.AuthAttempt) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempt)
	return nil
}

// History returns attempts most-recent-first, bounded by the filter limit.
func (m *MockAudit) History(ctx context.Context, filter database.HistoryFilter) ([]database.AuthAttempt, error) {
	if m.HistoryError != nil {
		return nil, m.HistoryError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = database.DefaultHistoryLimit
	}

	var out []database.AuthAttempt
	for i := len(m.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.attempts[i]
		if filter.UserID != "" && (a.MatchedUserID == nil || *a.MatchedUserID != filter.UserID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Count returns the total number of recorded attempts.
func (m *MockAudit) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts), nil
}

// MockUserReader is an in-memory implementation of database.UserReader.
type MockUserReader struct {
	mu    sync.RWMutex
	users map[string]database.User

	// Error injection
	GetError error
}

// NewMockUserReader creates an empty mock user directory.
func NewMockUserReader() *MockUserReader {
	return &MockUserReader{users: make(map[string]database.User)}
}

// AddUser adds a user to the mock directory.
func (m *MockUserReader) AddUser(u database.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// RemoveUser deletes a user from the mock directory.
func (m *MockUserReader) RemoveUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// GetByID retrieves a user by ID, returns nil if not found.
func (m *MockUserReader) GetByID(ctx context.Context, userID string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[userID]; ok {
		return &u, nil
	}
	return nil, nil
}

// GetByName retrieves a user by normalized display name, returns nil if not found.
func (m *MockUserReader) GetByName(ctx context.Context, name string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := facematch.NormalizeUserName(name)
	for _, u := range m.users {
		if facematch.NormalizeUserName(u.Name) == want {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

// ListActive returns all active users.
func (m *MockUserReader) ListActive(ctx context.Context) ([]database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.User
	for _, u := range m.users {
		if u.Active {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
