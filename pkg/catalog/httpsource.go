package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bijux/atlas/pkg/dataset"
)

// HTTPSource is a RegistrySource backed by a remote registry reachable
// over plain HTTP(S), using conditional GETs against the stored ETag.
type HTTPSource struct {
	name              string
	priority          int
	baseURL           string
	ttl               time.Duration
	expectedSignature string
	client            *http.Client
}

// NewHTTPSource builds an HTTPSource against baseURL, expecting
// <baseURL>/catalog.json and <baseURL>/<release>/<species>/<assembly>/...
// to mirror the §6.1 layout.
func NewHTTPSource(name string, priority int, baseURL string, ttl time.Duration) *HTTPSource {
	return &HTTPSource{
		name:     name,
		priority: priority,
		baseURL:  baseURL,
		ttl:      ttl,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithExpectedSignature pins the source to a SHA-256 digest its catalog
// must recompute to.
func (s *HTTPSource) WithExpectedSignature(sig string) *HTTPSource {
	s.expectedSignature = sig
	return s
}

// WithClient overrides the HTTP client (tests supply one pointed at an
// httptest.Server).
func (s *HTTPSource) WithClient(c *http.Client) *HTTPSource {
	s.client = c
	return s
}

func (s *HTTPSource) Name() string             { return s.name }
func (s *HTTPSource) Priority() int            { return s.priority }
func (s *HTTPSource) TTL() time.Duration       { return s.ttl }
func (s *HTTPSource) ExpectedSignature() string { return s.expectedSignature }

func (s *HTTPSource) join(parts ...string) string {
	u := s.baseURL
	for _, p := range parts {
		u = u + "/" + url.PathEscape(p)
	}
	return u
}

func (s *HTTPSource) FetchCatalog(ctx context.Context, etag string) (FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/catalog.json", nil)
	if err != nil {
		return FetchResult{}, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetching catalog from %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchResult{Status: NotModified, ETag: etag}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, fmt.Errorf("catalog fetch from %s: unexpected status %d", s.baseURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, fmt.Errorf("reading catalog body: %w", err)
	}

	newETag := resp.Header.Get("ETag")
	return FetchResult{Status: Updated, CatalogBytes: body, ETag: newETag}, nil
}

func (s *HTTPSource) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *HTTPSource) FetchManifest(ctx context.Context, id dataset.DatasetId) ([]byte, error) {
	return s.fetch(ctx, s.join(id.Release, id.Species, id.Assembly, "manifest.json"))
}

func (s *HTTPSource) FetchDBBytes(ctx context.Context, id dataset.DatasetId) ([]byte, error) {
	return s.fetch(ctx, s.join(id.Release, id.Species, id.Assembly, "dataset.db"))
}

func (s *HTTPSource) FetchAuxiliary(ctx context.Context, id dataset.DatasetId, name string) ([]byte, error) {
	return s.fetch(ctx, s.join(id.Release, id.Species, id.Assembly, "derived", name))
}
