// Package facematch implements the gallery matching step of face
// authentication: finding, across all enrolled users, the stored embedding
// closest to a probe and converting its distance to a confidence score.
package facematch

import (
	"errors"
	"math"

	"github.com/kozaktomas/face-login/internal/database"
)

// ErrInvalidProbe is returned when the probe embedding's dimensionality does
// not match the gallery's fixed dimension. The matcher fails fast and never
// runs a partial comparison.
var ErrInvalidProbe = errors.New("probe embedding dimension mismatch")

// Candidate is one (user, record) pair competing at the cross-user stage.
type Candidate struct {
	UserID   string
	RecordID string
	Distance float64
}

// Result is the outcome of matching a probe against the gallery.
//
// Exactly one of three shapes occurs: no candidates (empty gallery),
// an ambiguous tie between different users, or a unique best candidate.
type Result struct {
	// NoCandidates is true when the gallery held no embeddings at all.
	NoCandidates bool

	// Ambiguous is true when two or more users tied exactly on the minimum
	// distance. A tie must never resolve to an accept, so no Best is reported.
	Ambiguous bool

	// Best is the unique minimum-distance candidate, valid only when
	// NoCandidates and Ambiguous are both false.
	Best Candidate

	// Confidence is the normalized score in [0, 1] for Best.
	Confidence float64
}

// Matcher compares probe embeddings against gallery snapshots using Euclidean
// distance. It is stateless and safe for concurrent use.
type Matcher struct {
	dim         int
	maxDistance float64
}

// New creates a Matcher for a fixed embedding dimension. maxDistance is the
// normalization constant mapping distances onto the [0, 1] confidence scale.
func New(dim int, maxDistance float64) *Matcher {
	return &Matcher{dim: dim, maxDistance: maxDistance}
}

// bestPerUser reduces a user's records to their single minimum-distance
// candidate. A user is represented by their closest stored sample, not by
// an average.
func (m *Matcher) bestPerUser(probe []float32, userID string, records []database.FaceRecord) (Candidate, bool) {
	best := Candidate{UserID: userID, Distance: math.Inf(1)}
	found := false
	for i := range records {
		d := database.EuclideanDistance(probe, records[i].Embedding)
		if math.IsInf(d, 1) {
			// Stored record with a bad dimension; skip rather than letting
			// +Inf distances pollute the comparison.
			continue
		}
		if !found || d < best.Distance {
			best.RecordID = records[i].ID
			best.Distance = d
			found = true
		}
	}
	return best, found
}

// Match finds the enrolled user whose closest embedding is nearest to the
// probe. The result is deterministic for identical inputs: map iteration
// order cannot affect it because exact cross-user ties are reported as
// ambiguous instead of resolved.
func (m *Matcher) Match(probe []float32, gallery map[string][]database.FaceRecord) (Result, error) {
	if len(probe) != m.dim {
		return Result{}, ErrInvalidProbe
	}

	best := Candidate{Distance: math.Inf(1)}
	found := false
	tied := false

	for userID, records := range gallery {
		cand, ok := m.bestPerUser(probe, userID, records)
		if !ok {
			continue
		}
		switch {
		case !found || cand.Distance < best.Distance:
			best = cand
			found = true
			tied = false
		case cand.Distance == best.Distance && cand.UserID != best.UserID:
			// Exact floating-point tie between different users.
			tied = true
		}
	}

	if !found {
		return Result{NoCandidates: true}, nil
	}
	if tied {
		return Result{Ambiguous: true}, nil
	}

	return Result{
		Best:       best,
		Confidence: database.DistanceToConfidence(best.Distance, m.maxDistance),
	}, nil
}
