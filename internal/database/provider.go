package database

import (
	"context"
	"fmt"
)

// HNSWRebuilder is an interface for repositories that support HNSW index rebuilding
type HNSWRebuilder interface {
	// EnableHNSW builds or loads the in-memory HNSW index, persisting to
	// indexPath when non-empty
	EnableHNSW(ctx context.Context, indexPath string) error
	// RebuildHNSW rebuilds the in-memory HNSW index
	RebuildHNSW(ctx context.Context) error
	// HNSWCount returns the number of items in the HNSW index
	HNSWCount() int
	// IsHNSWEnabled returns whether HNSW is enabled
	IsHNSWEnabled() bool
	// SaveHNSWIndex saves the current index to disk (if path configured)
	SaveHNSWIndex() error
}

var (
	postgresGalleryReader func() GalleryReader
	postgresGalleryWriter func() GalleryWriter
	postgresAuditWriter   func() AuditWriter
	postgresGalleryHNSW   HNSWRebuilder
	postgresInitialized   bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	galleryReader func() GalleryReader,
	galleryWriter func() GalleryWriter,
	auditWriter func() AuditWriter,
) {
	postgresGalleryReader = galleryReader
	postgresGalleryWriter = galleryWriter
	postgresAuditWriter = auditWriter
	postgresInitialized = true
}

// RegisterGalleryHNSWRebuilder registers the HNSW rebuilder for the gallery
// repository, allowing index rebuilds without knowing the concrete type.
func RegisterGalleryHNSWRebuilder(rebuilder HNSWRebuilder) {
	postgresGalleryHNSW = rebuilder
}

// GetGalleryHNSWRebuilder returns the registered rebuilder, or nil if not registered.
func GetGalleryHNSWRebuilder() HNSWRebuilder {
	return postgresGalleryHNSW
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetGalleryReader returns a GalleryReader from the PostgreSQL backend
func GetGalleryReader() (GalleryReader, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresGalleryReader == nil {
		return nil, fmt.Errorf("PostgreSQL gallery reader not registered")
	}
	return postgresGalleryReader(), nil
}

// GetGalleryWriter returns a GalleryWriter from the PostgreSQL backend
func GetGalleryWriter() (GalleryWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresGalleryWriter == nil {
		return nil, fmt.Errorf("PostgreSQL gallery writer not registered")
	}
	return postgresGalleryWriter(), nil
}

// GetAuditWriter returns an AuditWriter from the PostgreSQL backend
func GetAuditWriter() (AuditWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresAuditWriter == nil {
		return nil, fmt.Errorf("PostgreSQL audit writer not registered")
	}
	return postgresAuditWriter(), nil
}
