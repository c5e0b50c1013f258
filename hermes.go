// hermes: Self-refreshing remote configuration source with atomic snapshots
//
// Philosophy:
// - Minimal dependencies (AGILira ecosystem plus the provider clients)
// - Polling-based refresh for maximum backend portability
// - Immutable snapshots behind an atomic pointer (lock-free reads)
// - Version-gated refresh to skip redundant work when nothing changed
// - Fail fast at construction, tolerate failures afterwards
//
// Example Usage:
//   source, err := hermes.New(hermes.Settings{
//       URL:                  "consul://127.0.0.1:8500/config/myapp",
//       Application:          "myapp",
//       DownloadPeriodically: true,
//   })
//   if err != nil {
//       log.Fatal(err)
//   }
//   defer source.Stop()
//
//   if port, ok := source.Get("server.port"); ok {
//       // Apply the value
//   }
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"github.com/agilira/go-errors"
)

// Error codes for Hermes operations
const (
	ErrCodeInvalidSettings  = "HERMES_INVALID_SETTINGS"
	ErrCodeSettingsNotFound = "HERMES_SETTINGS_NOT_FOUND"
	ErrCodeInvalidURL       = "HERMES_INVALID_URL"
	ErrCodeUnknownProvider  = "HERMES_UNKNOWN_PROVIDER"
	ErrCodeProviderExists   = "HERMES_PROVIDER_EXISTS"
	ErrCodeFetchFailed      = "HERMES_FETCH_FAILED"
	ErrCodeEmptyDocument    = "HERMES_EMPTY_DOCUMENT"
	ErrCodeParseError       = "HERMES_PARSE_ERROR"
	ErrCodeNullValue        = "HERMES_NULL_VALUE"
	ErrCodeConfigNotFound   = "HERMES_CONFIG_NOT_FOUND"
	ErrCodeSourceStopped    = "HERMES_SOURCE_STOPPED"
	ErrCodeBindFailed       = "HERMES_BIND_FAILED"
	ErrCodeInvalidAudit     = "HERMES_INVALID_AUDIT_CONFIG"
)

// ErrorHandler is called when errors occur during background refresh cycles.
// It receives the error and the remote URL the refresh was fetching from.
type ErrorHandler func(err error, configURL string)

// Source lifecycle states. A Source moves Idle -> Running -> Stopped;
// Stopped is terminal.
const (
	sourceIdle int32 = iota
	sourceRunning
	sourceStopped
)

// Source is a self-refreshing configuration source backed by a remote
// provider. Readers always observe one complete snapshot; the background
// refresher is the only writer.
type Source struct {
	settings Settings
	provider Provider
	name     string

	// LOCK-FREE READS: the current snapshot lives behind an atomic pointer
	store snapshotStore

	// Lifecycle: Idle -> Running -> Stopped via CompareAndSwap
	state     atomic.Int32
	stopCh    chan struct{}
	stoppedCh chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc

	// AUDIT SYSTEM: refresh lifecycle trail for security and compliance
	auditLogger *AuditLogger

	errorHandler ErrorHandler

	// Refresher counters, exposed through Stats
	refreshes   atomic.Uint64
	skips       atomic.Uint64
	failures    atomic.Uint64
	lastAttempt atomic.Int64
}

// New creates a Source from settings, resolving the provider from the URL
// scheme, and performs the first fetch synchronously. It returns an error if
// the settings are invalid, the scheme has no registered provider, or the
// first fetch-parse-flatten cycle fails; a missing first configuration is a
// deployment error, not something to retry quietly.
//
// When settings.DownloadPeriodically is true the background refresher is
// already running when New returns.
func New(settings Settings) (*Source, error) {
	cfg := settings.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := GetProvider(cfg.URL)
	if err != nil {
		return nil, err
	}

	return NewWithProvider(*cfg, provider)
}

// NewWithProvider creates a Source using an explicitly supplied provider,
// bypassing the scheme registry. The same construction contract as New
// applies: the first fetch happens synchronously and failures are fatal.
func NewWithProvider(settings Settings, provider Provider) (*Source, error) {
	if provider == nil {
		return nil, errors.New(ErrCodeInvalidSettings, "provider cannot be nil")
	}

	cfg := settings.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auditLogger, err := NewAuditLogger(cfg.Audit)
	if err != nil {
		// Fall back to a disabled audit trail if setup fails
		auditLogger, _ = NewAuditLogger(AuditConfig{Enabled: false})
	}

	ctx, cancel := context.WithCancel(context.Background())
	source := &Source{
		settings:     *cfg,
		provider:     provider,
		name:         cfg.sourceName(),
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		auditLogger:  auditLogger,
		errorHandler: cfg.ErrorHandler,
	}
	if source.errorHandler == nil {
		source.errorHandler = func(err error, configURL string) {
			log.Printf("Hermes: refresh error for %s: %v", configURL, err)
		}
	}

	// First fetch is synchronous and strict: construction fails rather than
	// exposing a Source with no values.
	fetchCtx, fetchCancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer fetchCancel()
	if _, err := source.fetchAndPublish(fetchCtx); err != nil {
		cancel()
		_ = auditLogger.Close()
		return nil, err
	}

	source.auditLogger.LogSourceEvent("source_created", cfg.URL, map[string]interface{}{
		"source":  source.name,
		"ordinal": cfg.Ordinal,
		"version": source.Version(),
	})

	if cfg.DownloadPeriodically {
		if err := source.Start(); err != nil {
			cancel()
			_ = auditLogger.Close()
			return nil, err
		}
	}

	return source, nil
}

// Get returns the value stored at a dotted key path in the current snapshot.
// The boolean reports presence; absence is an ordinary outcome, not an error.
func (s *Source) Get(key string) (string, bool) {
	value, ok := s.store.Current().Values[key]
	return value, ok
}

// Keys returns a sorted copy of all key paths in the current snapshot.
func (s *Source) Keys() []string {
	values := s.store.Current().Values
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the current snapshot's flat key/value map.
// Mutating the copy has no effect on the Source.
func (s *Source) Values() map[string]string {
	current := s.store.Current().Values
	values := make(map[string]string, len(current))
	for k, v := range current {
		values[k] = v
	}
	return values
}

// Name returns the source name, fixed at construction.
func (s *Source) Name() string {
	return s.name
}

// Ordinal returns the source priority, fixed at construction. Higher
// ordinals win when a surrounding configuration system merges sources.
func (s *Source) Ordinal() int {
	return s.settings.Ordinal
}

// Version returns the provider version token of the current snapshot.
func (s *Source) Version() string {
	return s.store.Current().Version
}

// Revision returns the publish counter of the current snapshot. It increases
// by one for every published snapshot and never moves backwards.
func (s *Source) Revision() uint64 {
	return s.store.Current().Revision
}

// Snapshot returns the current immutable snapshot. Callers must not mutate
// its Values map.
func (s *Source) Snapshot() *Snapshot {
	return s.store.Current()
}

// IsRunning reports whether the background refresher is active.
func (s *Source) IsRunning() bool {
	return s.state.Load() == sourceRunning
}

// Start launches the background refresher. Calling Start on a running Source
// is a no-op; a stopped Source cannot be restarted.
func (s *Source) Start() error {
	if s.state.CompareAndSwap(sourceIdle, sourceRunning) {
		go s.refreshLoop()
		s.auditLogger.LogSourceEvent("source_start", s.settings.URL, map[string]interface{}{
			"source":   s.name,
			"interval": s.settings.DownloadInterval.String(),
		})
		return nil
	}
	if s.state.Load() == sourceRunning {
		return nil
	}
	return errors.New(ErrCodeSourceStopped, "source has been stopped and cannot be restarted")
}

// Stop terminates the background refresher and waits for it to exit. It is
// idempotent: repeated calls return nil. Once Stop returns no further
// snapshot is published, even if a fetch was in flight when it was called.
func (s *Source) Stop() error {
	for {
		switch s.state.Load() {
		case sourceStopped:
			return nil
		case sourceIdle:
			if s.state.CompareAndSwap(sourceIdle, sourceStopped) {
				s.cancel()
				s.closeAudit()
				return nil
			}
		case sourceRunning:
			if s.state.CompareAndSwap(sourceRunning, sourceStopped) {
				s.cancel()
				close(s.stopCh)
				<-s.stoppedCh
				s.closeAudit()
				return nil
			}
		}
	}
}

// Close is an alias for Stop for use with defer statements.
func (s *Source) Close() error {
	return s.Stop()
}

func (s *Source) closeAudit() {
	s.auditLogger.LogSourceEvent("source_stop", s.settings.URL, map[string]interface{}{
		"source":  s.name,
		"version": s.Version(),
	})
	_ = s.auditLogger.Close()
}

// Refresh forces one fetch cycle outside the periodic schedule, publishing a
// new snapshot when the version token changed. Unlike background cycles the
// error is returned to the caller.
func (s *Source) Refresh(ctx context.Context) error {
	if s.state.Load() == sourceStopped {
		return errors.New(ErrCodeSourceStopped, "source has been stopped")
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.settings.FetchTimeout)
	defer cancel()
	_, err := s.fetchAndPublish(fetchCtx)
	return err
}

// HealthCheck verifies that the remote backend is reachable through the
// provider without fetching or publishing anything.
func (s *Source) HealthCheck(ctx context.Context) error {
	return s.provider.HealthCheck(ctx, s.settings.URL)
}

// String implements fmt.Stringer for diagnostics.
func (s *Source) String() string {
	return fmt.Sprintf("hermes.Source{name: %s, url: %s, version: %s}",
		s.name, s.settings.URL, s.Version())
}
