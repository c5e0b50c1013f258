// Package http provides an HTTP(S) remote configuration provider for Hermes
//
// STANDARD NAMING: hermes_provider_http.go
// COMMUNITY PATTERN: All Hermes providers should follow this naming convention
//
// USAGE:
//   import _ "github.com/agilira/hermes/providers/http"  // Auto-registers HTTP and HTTPS providers
//
//   source, err := hermes.New(hermes.Settings{
//       URL: "https://config.example.com/myapp/production.json",
//   })
//
// URL FORMAT:
//   http://[user:password@]host[:port]/path
//   https://[user:password@]host[:port]/path
//
//   Basic authentication credentials embedded in the URL are applied to
//   every request.
//
// VERSION TOKEN:
//   The provider prefers the response ETag as the version token and replays
//   it through If-None-Match, so an unchanged document costs a 304 with no
//   body. Servers without ETags fall back to a SHA-256 hash of the body.
//
// FEATURES:
//   - Automatic retries with exponential backoff via go-retryablehttp
//   - Pooled transport via go-cleanhttp
//   - ETag conditional requests with cached document replay on 304
//   - Content-Type propagation for format detection
//   - Production-ready error handling
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"sync"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/hermes"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	clientOnce   sync.Once
	sharedClient *retryablehttp.Client
)

// httpClient returns the process-wide retrying HTTP client. Both the http
// and https provider instances share one pooled transport.
func httpClient() *retryablehttp.Client {
	clientOnce.Do(func() {
		sharedClient = retryablehttp.NewClient()
		sharedClient.HTTPClient = cleanhttp.DefaultPooledClient()
		sharedClient.RetryMax = 3
		sharedClient.Logger = nil
	})
	return sharedClient
}

// cachedResponse remembers the last successful fetch for a URL so a 304
// response can be answered from memory.
type cachedResponse struct {
	etag string
	doc  *hermes.Document
}

// HTTPProvider implements hermes.Provider over HTTP or HTTPS. Two instances
// are registered at import time, one per scheme.
type HTTPProvider struct {
	scheme string

	mu    sync.Mutex
	cache map[string]*cachedResponse
}

// Name returns the human-readable provider name
func (h *HTTPProvider) Name() string {
	return fmt.Sprintf("HTTP Remote Configuration Provider v1.0 (%s)", h.scheme)
}

// Scheme returns the URL scheme this provider handles
func (h *HTTPProvider) Scheme() string {
	return h.scheme
}

// Validate checks if the configuration URL is valid for this provider
func (h *HTTPProvider) Validate(configURL string) error {
	u, err := url.Parse(configURL)
	if err != nil {
		return errors.Wrap(err, hermes.ErrCodeInvalidURL,
			"invalid HTTP URL format")
	}
	if u.Scheme != h.scheme {
		return errors.New(hermes.ErrCodeInvalidURL,
			fmt.Sprintf("URL scheme must be '%s'", h.scheme))
	}
	if u.Host == "" {
		return errors.New(hermes.ErrCodeInvalidURL,
			"HTTP URL must include a host")
	}
	return nil
}

// Fetch retrieves the configuration document from the HTTP endpoint.
//
// When a previous fetch recorded an ETag, the request carries If-None-Match
// and a 304 answer returns the cached document with its original version
// token, which the refresher then treats as unchanged.
func (h *HTTPProvider) Fetch(ctx context.Context, configURL string) (*hermes.Document, error) {
	if err := h.Validate(configURL); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodGet, configURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeInvalidURL,
			"failed to build HTTP request")
	}

	h.mu.Lock()
	cached := h.cache[configURL]
	h.mu.Unlock()
	if cached != nil && cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeFetchFailed,
			"HTTP fetch failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == nethttp.StatusNotModified:
		if cached == nil {
			return nil, errors.New(hermes.ErrCodeFetchFailed,
				"server answered 304 without a cached document")
		}
		return cached.doc, nil

	case resp.StatusCode == nethttp.StatusNotFound:
		return nil, errors.New(hermes.ErrCodeConfigNotFound,
			fmt.Sprintf("remote configuration not found at %s", configURL))

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.New(hermes.ErrCodeFetchFailed,
			fmt.Sprintf("HTTP fetch returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeFetchFailed,
			"failed to read HTTP response body")
	}

	etag := resp.Header.Get("ETag")
	version := etag
	if version == "" {
		sum := sha256.Sum256(data)
		version = hex.EncodeToString(sum[:])
	}

	doc := &hermes.Document{
		Version:     version,
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   timecache.CachedTime(),
	}

	h.mu.Lock()
	if h.cache == nil {
		h.cache = make(map[string]*cachedResponse)
	}
	h.cache[configURL] = &cachedResponse{etag: etag, doc: doc}
	h.mu.Unlock()

	return doc, nil
}

// HealthCheck verifies the HTTP endpoint is reachable.
//
// A HEAD request keeps the check cheap; any answered status below 500
// counts as healthy, including 404 and 405, since those still prove the
// endpoint is up.
func (h *HTTPProvider) HealthCheck(ctx context.Context, configURL string) error {
	if err := h.Validate(configURL); err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodHead, configURL, nil)
	if err != nil {
		return errors.Wrap(err, hermes.ErrCodeInvalidURL,
			"failed to build HTTP request")
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return errors.Wrap(err, hermes.ErrCodeFetchFailed,
			"HTTP health check failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return errors.New(hermes.ErrCodeFetchFailed,
			fmt.Sprintf("HTTP health check returned status %d", resp.StatusCode))
	}

	return nil
}

// init automatically registers the HTTP and HTTPS providers when the
// package is imported
//
// This follows the Hermes plugin pattern where providers self-register
// via init() functions when their packages are imported.
func init() {
	for _, scheme := range []string{"http", "https"} {
		if err := hermes.RegisterProvider(&HTTPProvider{scheme: scheme}); err != nil {
			_ = err
		}
	}
}
