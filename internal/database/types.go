package database

import (
	"time"
)

// FaceRecord represents one registered face embedding stored in the gallery.
// Records are immutable after creation and are only removed by a cascade
// delete of the owning user.
type FaceRecord struct {
	ID        string
	UserID    string
	Embedding []float32
	Dim       int
	SourceRef string // opaque reference to the source image artifact
	PHash     string // perceptual hash of the source image, empty if unavailable
	CreatedAt time.Time
}

// AuthAttempt represents one completed authentication decision.
// Exactly one attempt is written per authentication call, including calls
// rejected at the quality gate.
type AuthAttempt struct {
	ID            string
	MatchedUserID *string // nil means no match
	Success       bool
	Confidence    *float64 // nil when no usable candidate existed
	CreatedAt     time.Time
}

// User is a read-only view of a record in the external user directory.
type User struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// HistoryFilter narrows an audit history query.
type HistoryFilter struct {
	UserID string // empty means all users
	Limit  int    // 0 means DefaultHistoryLimit
}
