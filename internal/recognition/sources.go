package recognition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileSourceStore saves registration source images as files under a base
// directory. The returned reference is the relative filename; the gallery
// treats it as opaque.
type FileSourceStore struct {
	dir string
}

// NewFileSourceStore creates the base directory if needed.
func NewFileSourceStore(dir string) (*FileSourceStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("source image directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating source image directory: %w", err)
	}
	return &FileSourceStore{dir: dir}, nil
}

// Save writes the image and returns its opaque reference.
func (s *FileSourceStore) Save(ctx context.Context, userID string, image []byte) (string, error) {
	name := fmt.Sprintf("user_%s_%s_%s.jpg",
		userID,
		time.Now().UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
	)
	if err := os.WriteFile(filepath.Join(s.dir, name), image, 0o640); err != nil {
		return "", fmt.Errorf("writing source image: %w", err)
	}
	return name, nil
}
