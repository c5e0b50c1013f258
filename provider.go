// provider.go: Remote Document Providers Plugin System
//
// Providers answer one question: "give me the current document and its
// version token". The core stays backend-free while provider packages carry
// the client dependencies and self-register by URL scheme.
//
// PRODUCTION USAGE:
//   import _ "github.com/agilira/hermes/providers/consul"  // Auto-registers consul://
//   import _ "github.com/agilira/hermes/providers/redis"   // Auto-registers redis://
//   import _ "github.com/agilira/hermes/providers/http"    // Auto-registers http:// and https://
//
// MANUAL REGISTRATION:
//   hermes.RegisterProvider(&MyCustomProvider{})
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
)

// Document is the raw result of one remote fetch: the payload bytes, the
// provider's opaque version token, and the advertised content type. Version
// changes if and only if the underlying document changed; equality is the
// only operation performed on it. An empty Version marks the document as
// unversioned and every fetch as new.
type Document struct {
	Version     string
	Data        []byte
	ContentType string
	FetchedAt   time.Time
}

// Provider is the narrow contract between a Source and a remote backend.
// Implementations are registered globally and selected by URL scheme.
type Provider interface {
	// Name returns a human-readable provider name (for debugging)
	Name() string

	// Scheme returns the URL scheme this provider handles (e.g. "consul")
	Scheme() string

	// Fetch retrieves the current document and its version token.
	// The URL carries the full connection information.
	Fetch(ctx context.Context, configURL string) (*Document, error)

	// Validate checks that the provider can handle the given URL
	Validate(configURL string) error

	// HealthCheck verifies the remote backend is reachable
	HealthCheck(ctx context.Context, configURL string) error
}

// FetchOptions controls retry behavior for one-shot fetches performed
// outside a Source's refresh loop (the loop retries by design, one attempt
// per cycle).
type FetchOptions struct {
	// Timeout for the whole fetch, retries included
	Timeout time.Duration

	// RetryAttempts for failed requests
	RetryAttempts int

	// RetryDelay between retry attempts
	RetryDelay time.Duration
}

// DefaultFetchOptions returns production-ready retry settings.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// Global registry of remote document providers
var (
	providers     []Provider
	providerMutex sync.RWMutex
)

// RegisterProvider registers a remote document provider. Providers are
// looked up by scheme; duplicate schemes are rejected so an accidental
// double import fails loudly instead of shadowing.
func RegisterProvider(provider Provider) error {
	if provider == nil {
		return errors.New(ErrCodeInvalidSettings, "provider cannot be nil")
	}

	scheme := provider.Scheme()
	if scheme == "" {
		return errors.New(ErrCodeInvalidSettings, "provider scheme cannot be empty")
	}

	providerMutex.Lock()
	defer providerMutex.Unlock()

	for _, existing := range providers {
		if existing.Scheme() == scheme {
			return errors.New(ErrCodeProviderExists,
				fmt.Sprintf("provider for scheme '%s' already registered", scheme))
		}
	}

	providers = append(providers, provider)
	return nil
}

// ProviderForScheme returns the registered provider for a URL scheme.
func ProviderForScheme(scheme string) (Provider, error) {
	providerMutex.RLock()
	defer providerMutex.RUnlock()

	for _, provider := range providers {
		if provider.Scheme() == scheme {
			return provider, nil
		}
	}

	return nil, errors.New(ErrCodeUnknownProvider,
		fmt.Sprintf("no provider registered for scheme '%s'", scheme))
}

// GetProvider parses a remote URL, resolves the provider for its scheme and
// validates the URL against it.
func GetProvider(configURL string) (Provider, error) {
	if configURL == "" {
		return nil, errors.New(ErrCodeInvalidURL, "remote URL cannot be empty")
	}

	parsedURL, err := url.Parse(configURL)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidURL, "invalid remote URL")
	}
	if parsedURL.Scheme == "" {
		return nil, errors.New(ErrCodeInvalidURL, "remote URL must have a scheme")
	}

	provider, err := ProviderForScheme(parsedURL.Scheme)
	if err != nil {
		return nil, err
	}

	if err := provider.Validate(configURL); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidURL, "remote URL validation failed")
	}

	return provider, nil
}

// ListProviders returns a copy of the registered providers, for debugging
// and for discovering which schemes a build supports.
func ListProviders() []Provider {
	providerMutex.RLock()
	defer providerMutex.RUnlock()

	list := make([]Provider, len(providers))
	copy(list, providers)
	return list
}

// FetchRemote performs a one-shot fetch of a remote document with retries,
// outside any Source. Used by tooling that wants the document without
// standing up a refresher.
func FetchRemote(configURL string, opts ...*FetchOptions) (*Document, error) {
	return FetchRemoteWithContext(context.Background(), configURL, opts...)
}

// FetchRemoteWithContext is FetchRemote with caller-controlled cancellation.
func FetchRemoteWithContext(ctx context.Context, configURL string, opts ...*FetchOptions) (*Document, error) {
	provider, err := GetProvider(configURL)
	if err != nil {
		return nil, err
	}

	options := DefaultFetchOptions()
	if len(opts) > 0 && opts[0] != nil {
		options = opts[0]
	}

	return fetchWithRetries(ctx, provider, configURL, options)
}

// fetchWithRetries retries transient failures with a fixed delay, giving up
// early on errors that retrying cannot fix.
func fetchWithRetries(ctx context.Context, provider Provider, configURL string, options *FetchOptions) (*Document, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, options.Timeout)
	defer cancel()

	var doc *Document
	var lastErr error

	for attempt := 0; attempt <= options.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctxWithTimeout, options.RetryDelay); err != nil {
				return nil, err
			}
		}

		doc, lastErr = provider.Fetch(ctxWithTimeout, configURL)
		if lastErr == nil {
			break
		}

		if shouldStopRetrying(lastErr) {
			break
		}
	}

	if lastErr != nil {
		return nil, errors.Wrap(lastErr, ErrCodeFetchFailed, "failed to fetch remote document")
	}
	if doc == nil {
		return nil, errors.New(ErrCodeFetchFailed, "provider returned nil document")
	}

	return doc, nil
}

// waitForRetry waits for the retry delay or context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), ErrCodeFetchFailed, "context canceled during retry")
	}
}

// shouldStopRetrying reports whether an error is permanent: context
// cancellation, HTTP client errors, and authentication failures do not get
// better by asking again.
func shouldStopRetrying(err error) bool {
	if err == nil {
		return false
	}

	if goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// HTTP 4xx client errors indicate a permanent configuration problem
	clientErrors := []string{
		"400 bad request",
		"401 unauthorized",
		"403 forbidden",
		"404 not found",
		"405 method not allowed",
		"409 conflict",
		"410 gone",
		"422 unprocessable entity",
		"429 too many requests",
	}
	for _, clientError := range clientErrors {
		if strings.Contains(errStr, clientError) {
			return true
		}
	}

	// Authentication and TLS failures, in the formats real clients produce
	authErrors := []string{
		"authentication failed",
		"invalid credentials",
		"access denied",
		"permission denied",
		"forbidden",
		"invalid token",
		"token expired",
		"certificate verify failed",
		"tls handshake failure",
	}
	for _, authError := range authErrors {
		if strings.Contains(errStr, authError) {
			return true
		}
	}

	return false
}

// HealthCheckProvider verifies that the backend behind a remote URL is
// reachable, without fetching the document.
func HealthCheckProvider(ctx context.Context, configURL string) error {
	provider, err := GetProvider(configURL)
	if err != nil {
		return err
	}
	return provider.HealthCheck(ctx, configURL)
}
