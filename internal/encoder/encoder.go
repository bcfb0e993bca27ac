// Package encoder talks to the external face-embedding service. The core
// never runs face detection or quality heuristics itself; it consumes the
// service's verdicts through the narrow Capability interface so the
// authentication engine stays testable with synthetic vectors.
package encoder

import "context"

// QualityReason classifies why an image was rejected by the quality check.
type QualityReason string

const (
	ReasonNone          QualityReason = "NONE"
	ReasonTooDark       QualityReason = "TOO_DARK"
	ReasonTooBright     QualityReason = "TOO_BRIGHT"
	ReasonBlurry        QualityReason = "BLURRY"
	ReasonFaceTooSmall  QualityReason = "FACE_TOO_SMALL"
	ReasonNoFace        QualityReason = "NO_FACE"
	ReasonMultipleFaces QualityReason = "MULTIPLE_FACES"
)

// QualityVerdict is the result of the external image quality pre-check.
type QualityVerdict struct {
	Acceptable bool          `json:"acceptable"`
	Reason     QualityReason `json:"reason"`
}

// BoundingBox is a detected face region in pixel coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// EmbeddingResult is the output of face detection plus encoding. Embedding is
// present only when exactly one usable face was resolved.
type EmbeddingResult struct {
	Faces     []BoundingBox `json:"faces"`
	Embedding []float32     `json:"embedding"`
}

// Capability defines what the core needs from the face-embedding service.
type Capability interface {
	// DetectAndEncode returns detected face boxes and, when exactly one
	// usable face is found, its fixed-length embedding vector.
	DetectAndEncode(ctx context.Context, image []byte) (*EmbeddingResult, error)

	// CheckQuality runs the brightness/contrast/blur pre-check on an image.
	CheckQuality(ctx context.Context, image []byte) (*QualityVerdict, error)
}
