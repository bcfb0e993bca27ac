package facematch

import (
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/face-login/internal/database"
)

func record(id string, embedding []float32) database.FaceRecord {
	return database.FaceRecord{ID: id, Embedding: embedding, Dim: len(embedding)}
}

func TestMatch_ExactMatch(t *testing.T) {
	m := New(3, 1.0)
	probe := []float32{0.1, 0.2, 0.3}
	gallery := map[string][]database.FaceRecord{
		"u1": {record("e1", []float32{0.1, 0.2, 0.3})},
	}

	result, err := m.Match(probe, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NoCandidates || result.Ambiguous {
		t.Fatalf("expected unique best candidate, got %+v", result)
	}
	if result.Best.UserID != "u1" {
		t.Errorf("expected user u1, got %s", result.Best.UserID)
	}
	if result.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for exact match, got %f", result.Confidence)
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	m := New(3, 1.0)

	result, err := m.Match([]float32{0, 0, 0}, map[string][]database.FaceRecord{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NoCandidates {
		t.Errorf("expected no-candidates result, got %+v", result)
	}
}

func TestMatch_InvalidProbe(t *testing.T) {
	m := New(128, 1.0)

	_, err := m.Match([]float32{0.1, 0.2}, map[string][]database.FaceRecord{})
	if !errors.Is(err, ErrInvalidProbe) {
		t.Errorf("expected ErrInvalidProbe, got %v", err)
	}
}

func TestMatch_PicksClosestUser(t *testing.T) {
	m := New(2, 1.0)
	probe := []float32{0, 0}
	gallery := map[string][]database.FaceRecord{
		"near": {record("e1", []float32{0.1, 0})},
		"far":  {record("e2", []float32{0.9, 0})},
	}

	result, err := m.Match(probe, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Best.UserID != "near" {
		t.Errorf("expected user near, got %s", result.Best.UserID)
	}
	if math.Abs(result.Best.Distance-0.1) > 1e-6 {
		t.Errorf("expected distance 0.1, got %f", result.Best.Distance)
	}
}

func TestMatch_UserRepresentedByClosestSample(t *testing.T) {
	// A user with one close and one distant record must compete with the
	// close one, and the distant record must not drag them down.
	m := New(2, 1.0)
	probe := []float32{0, 0}
	gallery := map[string][]database.FaceRecord{
		"u1": {
			record("far", []float32{0.8, 0}),
			record("close", []float32{0.05, 0}),
		},
		"u2": {record("mid", []float32{0.2, 0})},
	}

	result, err := m.Match(probe, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Best.UserID != "u1" {
		t.Errorf("expected user u1, got %s", result.Best.UserID)
	}
	if result.Best.RecordID != "close" {
		t.Errorf("expected record close, got %s", result.Best.RecordID)
	}
}

func TestMatch_TieBetweenUsersIsAmbiguous(t *testing.T) {
	// Two users at exactly the same distance: the matcher must fail closed,
	// never silently pick one.
	m := New(2, 1.0)
	probe := []float32{0, 0}
	gallery := map[string][]database.FaceRecord{
		"u1": {record("e1", []float32{0.3, 0})},
		"u2": {record("e2", []float32{0.3, 0})},
	}

	result, err := m.Match(probe, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Ambiguous {
		t.Errorf("expected ambiguous result, got %+v", result)
	}
	if result.Best.UserID != "" {
		t.Errorf("ambiguous result must not report a best candidate, got %s", result.Best.UserID)
	}
}

func TestMatch_TieWithinSameUserIsNotAmbiguous(t *testing.T) {
	m := New(2, 1.0)
	probe := []float32{0, 0}
	gallery := map[string][]database.FaceRecord{
		"u1": {
			record("e1", []float32{0.3, 0}),
			record("e2", []float32{0.3, 0}),
		},
	}

	result, err := m.Match(probe, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ambiguous {
		t.Error("tie between records of the same user should not be ambiguous")
	}
	if result.Best.UserID != "u1" {
		t.Errorf("expected user u1, got %s", result.Best.UserID)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	m := New(2, 1.0)
	probe := []float32{0.1, 0.1}
	gallery := map[string][]database.FaceRecord{
		"u1": {record("e1", []float32{0.15, 0.1})},
		"u2": {record("e2", []float32{0.3, 0.4})},
		"u3": {record("e3", []float32{0.9, 0.9})},
	}

	first, err := m.Match(probe, gallery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 50 {
		result, err := m.Match(probe, gallery)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != first {
			t.Fatalf("matcher non-deterministic: %+v vs %+v", result, first)
		}
	}
}

func TestMatch_ConfidenceDecreasesWithDistance(t *testing.T) {
	m := New(1, 1.0)
	gallery := map[string][]database.FaceRecord{
		"u1": {record("e1", []float32{0})},
	}

	prev := 2.0
	for _, p := range []float32{0, 0.2, 0.4, 0.6, 0.8} {
		result, err := m.Match([]float32{p}, gallery)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Confidence >= prev {
			t.Errorf("confidence should strictly decrease, got %f after %f", result.Confidence, prev)
		}
		prev = result.Confidence
	}
}
