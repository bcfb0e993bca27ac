package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultEncoderURL = "http://localhost:8000"

	// maxUploadSize is the longest image side sent to the encoder service.
	// Larger images are downscaled client-side to keep requests small.
	maxUploadSize = 1024
)

// HTTPClient implements Capability against the face-embedding service's
// HTTP API.
type HTTPClient struct {
	parsedURL *url.URL
	client    *http.Client
}

// NewHTTPClient creates a client for the face-embedding service.
func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	if baseURL == "" {
		baseURL = defaultEncoderURL
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid encoder URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid encoder URL scheme %q: must be http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("invalid encoder URL: missing host")
	}
	return &HTTPClient{
		parsedURL: parsed,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// DetectAndEncode sends the image to the encode endpoint.
func (c *HTTPClient) DetectAndEncode(ctx context.Context, image []byte) (*EmbeddingResult, error) {
	var result EmbeddingResult
	if err := c.postImage(ctx, "/encode", image, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckQuality sends the image to the quality endpoint.
func (c *HTTPClient) CheckQuality(ctx context.Context, image []byte) (*QualityVerdict, error) {
	var verdict QualityVerdict
	if err := c.postImage(ctx, "/quality", image, &verdict); err != nil {
		return nil, err
	}
	if verdict.Reason == "" {
		verdict.Reason = ReasonNone
	}
	return &verdict, nil
}

func (c *HTTPClient) postImage(ctx context.Context, path string, image []byte, target any) error {
	// Downscale before upload; the service only needs enough resolution
	// for detection and encoding.
	resized, err := ResizeImage(image, maxUploadSize)
	if err != nil {
		return fmt.Errorf("preparing image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.parsedURL.String()+path, bytes.NewReader(resized))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling encoder service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("encoder service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding encoder response: %w", err)
	}
	return nil
}
