package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testJPEG produces a small valid JPEG for client tests.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	if _, err := NewHTTPClient("ftp://example.com"); err == nil {
		t.Error("expected error for non-http scheme")
	}
	if _, err := NewHTTPClient("http://"); err == nil {
		t.Error("expected error for missing host")
	}
}

func TestDetectAndEncode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/encode" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(EmbeddingResult{
			Faces:     []BoundingBox{{X1: 10, Y1: 10, X2: 90, Y2: 90}},
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	result, err := client.DetectAndEncode(context.Background(), testJPEG(t, 100, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Faces) != 1 {
		t.Errorf("expected 1 face, got %d", len(result.Faces))
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-dim embedding, got %d", len(result.Embedding))
	}
}

func TestCheckQuality_DefaultsReasonToNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"acceptable": true}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	verdict, err := client.CheckQuality(context.Background(), testJPEG(t, 50, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Acceptable {
		t.Error("expected acceptable verdict")
	}
	if verdict.Reason != ReasonNone {
		t.Errorf("expected reason NONE, got %s", verdict.Reason)
	}
}

func TestCheckQuality_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.CheckQuality(context.Background(), testJPEG(t, 50, 50)); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestResizeImage_KeepsSmallImages(t *testing.T) {
	data := testJPEG(t, 100, 80)
	out, err := ResizeImage(data, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("small image should keep dimensions, got %v", img.Bounds())
	}
}

func TestResizeImage_DownscalesLargeImages(t *testing.T) {
	data := testJPEG(t, 2000, 1000)
	out, err := ResizeImage(data, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if img.Bounds().Dx() != 1024 {
		t.Errorf("expected width 1024, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 512 {
		t.Errorf("expected height 512, got %d", img.Bounds().Dy())
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	if _, err := ResizeImage([]byte("not an image"), 1024); err == nil {
		t.Error("expected error for invalid image data")
	}
}
