package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-login/internal/database/mock"
	"github.com/kozaktomas/face-login/internal/encoder"
	"github.com/kozaktomas/face-login/internal/recognition"
)

const testDim = 3

// fakeCapability is a scriptable encoder.Capability for handler tests.
type fakeCapability struct {
	verdict    encoder.QualityVerdict
	result     encoder.EmbeddingResult
	qualityErr error
	encodeErr  error
}

func (f *fakeCapability) CheckQuality(ctx context.Context, image []byte) (*encoder.QualityVerdict, error) {
	if f.qualityErr != nil {
		return nil, f.qualityErr
	}
	v := f.verdict
	return &v, nil
}

func (f *fakeCapability) DetectAndEncode(ctx context.Context, image []byte) (*encoder.EmbeddingResult, error) {
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	r := f.result
	return &r, nil
}

// goodCapability accepts everything and produces the given embedding for a
// single detected face.
func goodCapability(embedding []float32) *fakeCapability {
	return &fakeCapability{
		verdict: encoder.QualityVerdict{Acceptable: true, Reason: encoder.ReasonNone},
		result: encoder.EmbeddingResult{
			Faces:     []encoder.BoundingBox{{X2: 100, Y2: 100}},
			Embedding: embedding,
		},
	}
}

// testEngine builds an engine over fresh mocks.
func testEngine(capability encoder.Capability, users *mock.MockUserReader) (*recognition.Engine, *mock.MockGallery, *mock.MockAudit) {
	gallery := mock.NewMockGallery(testDim, 5)
	audit := mock.NewMockAudit()
	opts := recognition.Options{EmbeddingDim: testDim, MaxFacesPerUser: 5, Threshold: 0.6, MaxDistance: 1.0}
	// A typed nil must not reach the engine's interface field.
	if users != nil {
		return recognition.NewEngine(opts, capability, gallery, audit, users, nil), gallery, audit
	}
	return recognition.NewEngine(opts, capability, gallery, audit, nil, nil), gallery, audit
}

// multipartImageRequest builds a multipart request with an image part and
// optional extra form fields.
func multipartImageRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if image != nil {
		part, err := writer.CreateFormFile("image", "probe.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("failed to write image part: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeJSON unmarshals a recorded response body.
func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response '%s': %v", recorder.Body.String(), err)
	}
}
