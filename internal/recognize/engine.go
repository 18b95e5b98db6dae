package recognize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sidecar defaults
const (
	DefaultSidecarURL = "http://127.0.0.1:3737"
	MaxResponseSize   = 4 * 1024 * 1024
)

// Engine is the recognition engine contract. Both calls return the engine's raw
// nested payload; flattening happens in this package.
type Engine interface {
	RecognizeFile(ctx context.Context, path string) ([]byte, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]byte, error)
}

// HTTPEngine talks to a recognition sidecar process over HTTP:
// POST multipart /recognize with the audio file, GET /search?query=&limit=.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an engine for the sidecar at baseURL
func NewHTTPEngine(baseURL string) *HTTPEngine {
	if baseURL == "" {
		baseURL = DefaultSidecarURL
	}
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// RecognizeFile uploads the audio file for fingerprinting
func (e *HTTPEngine) RecognizeFile(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/recognize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return e.do(req)
}

// SearchTracks runs a text search
func (e *HTTPEngine) SearchTracks(ctx context.Context, query string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

func (e *HTTPEngine) do(req *http.Request) ([]byte, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call recognition service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read recognition response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition service returned status %d", resp.StatusCode)
	}
	return data, nil
}
