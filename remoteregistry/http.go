package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ Fetcher = (*HTTPFetcher)(nil)

const (
	defaultMaxBodySize = 1 << 20
	defaultUserAgent   = "toolround-remote-registry/1.0"
)

// HTTPFetcher serves profiles from a static file server or object store
// laid out like a profiles directory under one base URL.
type HTTPFetcher struct {
	base        *url.URL
	client      *http.Client
	token       string
	userAgent   string
	maxBodySize int64
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client (30s timeout). nil keeps the default.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPFetcher) {
		if c != nil {
			h.client = c
		}
	}
}

// WithAuthToken adds "Authorization: Bearer <token>" to every request. Empty sends no header.
func WithAuthToken(token string) HTTPOption {
	return func(h *HTTPFetcher) {
		h.token = token
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPFetcher) {
		h.userAgent = ua
	}
}

// WithMaxBodySize caps a profile body at n bytes (default 1 MiB). n <= 0 keeps the default.
func WithMaxBodySize(n int64) HTTPOption {
	return func(h *HTTPFetcher) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHTTPFetcher returns a fetcher rooted at baseURL, e.g. https://config.example.com/profiles.
// baseURL must be absolute.
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) (*HTTPFetcher, error) {
	trimmed := strings.TrimRight(baseURL, "/")
	if trimmed == "" {
		return nil, errors.New("remoteregistry: base URL must not be empty")
	}
	base, err := url.Parse(trimmed)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remoteregistry: base URL %q is not absolute", baseURL)
	}
	h := &HTTPFetcher{
		base:        base,
		client:      &http.Client{Timeout: 30 * time.Second},
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Fetch tries each of CandidatePaths and returns the first the server has.
// 404 moves on to the next candidate; any other non-2xx status fails with ErrHTTPStatus.
func (h *HTTPFetcher) Fetch(ctx context.Context, name, env string) ([]byte, error) {
	if err := validate(name, env); err != nil {
		return nil, err
	}
	for _, p := range CandidatePaths(name, env) {
		data, found, err := h.get(ctx, h.base.JoinPath(p).String())
		if err != nil {
			return nil, err
		}
		if found {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// get reports found=false for 404.
func (h *HTTPFetcher) get(ctx context.Context, u string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/yaml, text/yaml, text/plain")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.client.Do(req) // #nosec G704 -- base URL is operator config, name is validated
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, fmt.Errorf("%w: %w: GET %s: %s", ErrFetchFailed, ErrHTTPStatus, u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s: %w", ErrFetchFailed, u, err)
	}
	if int64(len(data)) > h.maxBodySize {
		return nil, false, fmt.Errorf("%w: %s is larger than %d bytes", ErrFetchFailed, u, h.maxBodySize)
	}
	return data, true, nil
}
