// Package recognition implements the face authentication decision engine:
// quality gating, gallery matching, threshold decision and audit logging.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/encoder"
	"github.com/kozaktomas/face-login/internal/facematch"
	"github.com/kozaktomas/face-login/internal/fingerprint"
)

// duplicateHashThreshold is the maximum pHash Hamming distance at which two
// enrollment images count as the same photo.
const duplicateHashThreshold = 8

// SourceStore persists the raw image of an accepted registration and returns
// an opaque reference to it.
type SourceStore interface {
	Save(ctx context.Context, userID string, image []byte) (string, error)
}

// Decision is the outcome of one authentication attempt.
type Decision struct {
	Success       bool     `json:"success"`
	MatchedUserID *string  `json:"matched_user_id"`
	Confidence    *float64 `json:"confidence"`
}

// Options configures an Engine.
type Options struct {
	EmbeddingDim    int
	MaxFacesPerUser int
	Threshold       float64
	MaxDistance     float64
}

// Engine orchestrates registration and authentication. It holds no per-attempt
// state of its own; all persistence goes through the gallery and audit
// repositories.
type Engine struct {
	opts       Options
	capability encoder.Capability
	gallery    database.GalleryWriter
	audit      database.AuditWriter
	users      database.UserReader // may be nil when no directory is wired
	sources    SourceStore         // may be nil, registrations then store an empty ref
	matcher    *facematch.Matcher
}

// NewEngine creates a decision engine.
func NewEngine(opts Options, capability encoder.Capability, gallery database.GalleryWriter, audit database.AuditWriter, users database.UserReader, sources SourceStore) *Engine {
	return &Engine{
		opts:       opts,
		capability: capability,
		gallery:    gallery,
		audit:      audit,
		users:      users,
		sources:    sources,
		matcher:    facematch.New(opts.EmbeddingDim, opts.MaxDistance),
	}
}

// Threshold returns the configured authentication threshold.
func (e *Engine) Threshold() float64 {
	return e.opts.Threshold
}

// extractEmbedding runs the quality gate and the embedding extraction,
// translating every unusable input into a QualityError.
func (e *Engine) extractEmbedding(ctx context.Context, image []byte) ([]float32, error) {
	verdict, err := e.capability.CheckQuality(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("quality check: %w", err)
	}
	if !verdict.Acceptable {
		return nil, &QualityError{Reason: verdict.Reason}
	}

	result, err := e.capability.DetectAndEncode(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect and encode: %w", err)
	}
	switch {
	case len(result.Faces) == 0:
		return nil, &QualityError{Reason: encoder.ReasonNoFace}
	case len(result.Faces) > 1:
		return nil, &QualityError{Reason: encoder.ReasonMultipleFaces}
	case len(result.Embedding) == 0:
		return nil, &QualityError{Reason: encoder.ReasonNoFace}
	}
	return result.Embedding, nil
}

// Register enrolls a new face for a user. On success it returns the number of
// embeddings now on file so callers can show "4 of 5 registered". Quality and
// duplicate rejections happen before the store is touched and are not
// audited; only authentication attempts are.
func (e *Engine) Register(ctx context.Context, userID string, image []byte) (int, error) {
	if e.users != nil {
		user, err := e.users.GetByID(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("looking up user: %w", err)
		}
		if user == nil || !user.Active {
			return 0, ErrUnknownUser
		}
	}

	embedding, err := e.extractEmbedding(ctx, image)
	if err != nil {
		return 0, err
	}

	phash, err := e.checkDuplicate(ctx, userID, image)
	if err != nil {
		return 0, err
	}

	sourceRef := ""
	if e.sources != nil {
		sourceRef, err = e.sources.Save(ctx, userID, image)
		if err != nil {
			return 0, fmt.Errorf("saving source image: %w", err)
		}
	}

	if _, err := e.gallery.Add(ctx, userID, embedding, sourceRef, phash); err != nil {
		return 0, err
	}

	count, err := e.gallery.CountByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting registered faces: %w", err)
	}
	return count, nil
}

// checkDuplicate computes the perceptual hash of an enrollment image and
// rejects it when the user already holds a near-identical photo. Images the
// hash cannot decode (crops straight off a camera sensor, unusual formats)
// are let through with an empty hash rather than blocking enrollment.
func (e *Engine) checkDuplicate(ctx context.Context, userID string, image []byte) (string, error) {
	hashes, err := fingerprint.ComputeHashes(image)
	if err != nil {
		return "", nil
	}

	existing, err := e.gallery.GetByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading user faces: %w", err)
	}
	for _, rec := range existing {
		if rec.PHash == "" {
			continue
		}
		bits, err := strconv.ParseUint(rec.PHash, 16, 64)
		if err != nil {
			continue
		}
		if fingerprint.Similar(hashes.PHashBits, bits, duplicateHashThreshold) {
			return "", ErrDuplicateImage
		}
	}
	return hashes.PHash, nil
}

// Authenticate matches a probe image against the full gallery and decides
// accept or reject. Every call writes exactly one audit record, including
// calls rejected at the quality gate. If the audit write fails, the call
// fails with ErrAuditWrite even when matching succeeded.
func (e *Engine) Authenticate(ctx context.Context, image []byte) (Decision, error) {
	embedding, err := e.extractEmbedding(ctx, image)
	if err != nil {
		if _, ok := IsQualityError(err); ok {
			// A rejected probe is still a completed attempt: audit it.
			if auditErr := e.writeAttempt(ctx, Decision{}); auditErr != nil {
				return Decision{}, auditErr
			}
		}
		return Decision{}, err
	}

	gallery, err := e.gallery.AllGrouped(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("loading gallery snapshot: %w", err)
	}

	result, err := e.matcher.Match(embedding, gallery)
	if err != nil {
		return Decision{}, err
	}

	decision := e.decide(ctx, result)

	if err := e.writeAttempt(ctx, decision); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// decide applies the threshold to a match result. On any failure the matched
// user is recorded as null rather than the near-miss identity.
func (e *Engine) decide(ctx context.Context, result facematch.Result) Decision {
	if result.NoCandidates || result.Ambiguous {
		return Decision{}
	}

	if result.Confidence < e.opts.Threshold {
		confidence := result.Confidence
		return Decision{Confidence: &confidence}
	}

	// A gallery record may outlive its user in the directory; a match
	// against a deleted or deactivated user is treated as no match.
	if e.users != nil {
		user, err := e.users.GetByID(ctx, result.Best.UserID)
		if err != nil || user == nil || !user.Active {
			return Decision{}
		}
	}

	userID := result.Best.UserID
	confidence := result.Confidence
	return Decision{Success: true, MatchedUserID: &userID, Confidence: &confidence}
}

// writeAttempt appends the audit record for a terminal decision. The caller
// may cancel before the write starts; once started, the append runs to
// completion so no attempt is ever half-recorded.
func (e *Engine) writeAttempt(ctx context.Context, decision Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempt := database.AuthAttempt{
		ID:            uuid.NewString(),
		MatchedUserID: decision.MatchedUserID,
		Success:       decision.Success,
		Confidence:    decision.Confidence,
		CreatedAt:     time.Now().UTC(),
	}

	if err := e.audit.Append(context.WithoutCancel(ctx), attempt); err != nil {
		return errors.Join(ErrAuditWrite, err)
	}
	return nil
}

// SimilarFaces finds the gallery records closest to the face in the given
// image. This is an advisory lookup for operators; it never writes an audit
// record and plays no part in authentication decisions.
func (e *Engine) SimilarFaces(ctx context.Context, image []byte, limit int) ([]database.FaceRecord, []float64, error) {
	embedding, err := e.extractEmbedding(ctx, image)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = database.DefaultHistoryLimit
	}
	return e.gallery.FindSimilar(ctx, embedding, limit)
}

// History returns recorded authentication attempts, most recent first.
func (e *Engine) History(ctx context.Context, filter database.HistoryFilter) ([]database.AuthAttempt, error) {
	return e.audit.History(ctx, filter)
}

// RemoveUser drops all of a user's gallery records (cascade on account
// deletion). Audit records are kept; they reference the user only by ID.
func (e *Engine) RemoveUser(ctx context.Context, userID string) ([]string, error) {
	return e.gallery.DeleteByUser(ctx, userID)
}
