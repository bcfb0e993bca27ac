package database

import (
	"context"
	"errors"
)

var (
	// ErrCapacityExceeded is returned when a user already holds the maximum
	// number of face records. The gallery is left unchanged.
	ErrCapacityExceeded = errors.New("maximum number of registered faces reached")

	// ErrInvalidEmbedding is returned when an embedding's dimensionality does
	// not match the configured fixed size.
	ErrInvalidEmbedding = errors.New("embedding dimension mismatch")
)

// GalleryReader provides read-only access to the face gallery.
type GalleryReader interface {
	// GetByUser retrieves all face records for a user, ordered by creation
	// time. Returns an empty slice (not an error) for users that never enrolled.
	GetByUser(ctx context.Context, userID string) ([]FaceRecord, error)
	// CountByUser returns the number of face records a user holds.
	CountByUser(ctx context.Context, userID string) (int, error)
	// AllGrouped returns a consistent point-in-time snapshot of the whole
	// gallery, keyed by user ID. Used by the matcher.
	AllGrouped(ctx context.Context) (map[string][]FaceRecord, error)
	// Count returns the total number of face records stored.
	Count(ctx context.Context) (int, error)
	// FindSimilar finds the faces closest to the query embedding by L2
	// distance and returns them with their distances.
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]FaceRecord, []float64, error)
}

// GalleryWriter provides write access to the face gallery.
type GalleryWriter interface {
	GalleryReader

	// Add stores a new face record for a user. The capacity check and the
	// insert are a single atomic operation per user: concurrent calls for the
	// same user never push the count past maxPerUser. Returns
	// ErrCapacityExceeded when the user is full and ErrInvalidEmbedding when
	// the vector dimension does not match dim. phash may be empty when the
	// source image could not be hashed.
	Add(ctx context.Context, userID string, embedding []float32, sourceRef, phash string) (*FaceRecord, error)

	// DeleteByUser removes all of a user's face records (cascade on user
	// deletion). Returns the deleted record IDs for HNSW cleanup.
	DeleteByUser(ctx context.Context, userID string) ([]string, error)
}

// AuditReader provides read-only access to authentication attempts.
type AuditReader interface {
	// History returns attempts most-recent-first, bounded by the filter limit.
	History(ctx context.Context, filter HistoryFilter) ([]AuthAttempt, error)
	// Count returns the total number of recorded attempts.
	Count(ctx context.Context) (int, error)
}

// AuditWriter provides append access to the authentication audit log.
// Attempts are never updated or deleted.
type AuditWriter interface {
	AuditReader

	// Append records one completed authentication attempt.
	Append(ctx context.Context, attempt AuthAttempt) error
}

// UserReader provides read-only access to the external user directory.
type UserReader interface {
	// GetByID retrieves a user by ID, returns nil if not found.
	GetByID(ctx context.Context, userID string) (*User, error)
	// GetByName retrieves a user by display name (diacritics-insensitive),
	// returns nil if not found.
	GetByName(ctx context.Context, name string) (*User, error)
	// ListActive returns all active users.
	ListActive(ctx context.Context) ([]User, error)
}
