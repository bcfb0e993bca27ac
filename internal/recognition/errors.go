package recognition

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-login/internal/encoder"
)

var (
	// ErrAuditWrite means the matching decision completed but the attempt
	// could not be durably logged. The caller must never see a successful
	// authentication that was not audited.
	ErrAuditWrite = errors.New("failed to write audit record")

	// ErrUnknownUser is returned when a registration targets a user the
	// directory does not know or has deactivated.
	ErrUnknownUser = errors.New("unknown or inactive user")

	// ErrDuplicateImage is returned when a registration submits an image
	// perceptually identical to one the user already has on file.
	ErrDuplicateImage = errors.New("image already enrolled for this user")
)

// QualityError reports why an image was unusable. Each rejection reason
// surfaces distinctly so callers can give specific feedback.
type QualityError struct {
	Reason encoder.QualityReason
}

func (e *QualityError) Error() string {
	switch e.Reason {
	case encoder.ReasonNoFace:
		return "no face detected in the image"
	case encoder.ReasonMultipleFaces:
		return "multiple faces detected in the image"
	case encoder.ReasonTooDark:
		return "image is too dark"
	case encoder.ReasonTooBright:
		return "image is too bright"
	case encoder.ReasonBlurry:
		return "image is too blurry"
	case encoder.ReasonFaceTooSmall:
		return "face region is too small"
	default:
		return fmt.Sprintf("image quality too low (%s)", e.Reason)
	}
}

// IsQualityError reports whether err is an input-quality rejection and
// returns the reason if so.
func IsQualityError(err error) (encoder.QualityReason, bool) {
	var qe *QualityError
	if errors.As(err, &qe) {
		return qe.Reason, true
	}
	return "", false
}
