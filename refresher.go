// refresher.go: Periodic background refresh of the remote document
//
// One goroutine per Source performs every write: fetch, version gate, parse,
// normalize, flatten, publish. Fetch failures during a cycle are logged and
// tolerated; the last good snapshot stays visible and the loop keeps its
// schedule. Stop waits for the loop to exit, so an in-flight cycle is always
// complete before Stop returns.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"context"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// SourceStats reports refresher activity counters for monitoring.
type SourceStats struct {
	RefreshCount uint64    // Cycles that published a new snapshot
	SkippedCount uint64    // Cycles skipped by the version gate
	FailureCount uint64    // Cycles that failed to fetch or parse
	LastAttempt  time.Time // When the last cycle ran (zero before any cycle)
}

// refreshLoop is the Source's single writer after construction. It exits when
// the stop channel closes or the context is cancelled.
func (s *Source) refreshLoop() {
	defer close(s.stoppedCh)

	ticker := time.NewTicker(s.settings.DownloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.refreshCycle()
		}
	}
}

// refreshCycle runs one tolerant refresh: errors go to the audit trail and
// the error handler, never to readers, and never stop the loop.
func (s *Source) refreshCycle() {
	ctx, cancel := context.WithTimeout(s.ctx, s.settings.FetchTimeout)
	defer cancel()

	if _, err := s.fetchAndPublish(ctx); err != nil {
		s.failures.Add(1)
		s.auditLogger.LogRefresh("refresh_failed", s.settings.URL, s.Version(), "")
		if s.errorHandler != nil {
			s.errorHandler(err, s.settings.URL)
		}
	}
}

// fetchAndPublish performs one strict fetch-parse-flatten-publish pass and
// reports whether a new snapshot was published. The version gate makes a
// cycle whose token matches the current snapshot a no-op; that skip is
// load-bearing, callers rely on "no spurious update when nothing changed".
func (s *Source) fetchAndPublish(ctx context.Context) (bool, error) {
	s.lastAttempt.Store(timecache.CachedTimeNano())

	doc, err := s.provider.Fetch(ctx, s.settings.URL)
	if err != nil {
		return false, errors.Wrap(err, ErrCodeFetchFailed, "remote fetch failed").
			WithContext("url", s.settings.URL)
	}

	// An empty token means the provider cannot version its documents; the
	// gate only trusts real tokens, so unversioned fetches always republish.
	current := s.store.Current()
	if current.Revision > 0 && doc.Version != "" && doc.Version == current.Version {
		s.skips.Add(1)
		s.auditLogger.LogRefresh("refresh_skipped", s.settings.URL, current.Version, doc.Version)
		return false, nil
	}

	parsed, err := ParseDocument(doc.Data, DetectFormat(doc.ContentType, doc.Data))
	if err != nil {
		return false, err
	}

	flat, err := Flatten(Normalize(parsed))
	if err != nil {
		return false, err
	}

	// A Source that was stopped while this fetch was in flight must not
	// resurface: readers were promised silence after Stop.
	if s.state.Load() == sourceStopped {
		return false, errors.New(ErrCodeSourceStopped, "source stopped during refresh")
	}

	s.store.Publish(&Snapshot{Version: doc.Version, Values: flat})
	s.refreshes.Add(1)
	s.auditLogger.LogRefresh("refresh_applied", s.settings.URL, current.Version, doc.Version)
	return true, nil
}

// Stats returns a point-in-time copy of the refresher counters.
func (s *Source) Stats() SourceStats {
	stats := SourceStats{
		RefreshCount: s.refreshes.Load(),
		SkippedCount: s.skips.Load(),
		FailureCount: s.failures.Load(),
	}
	if nano := s.lastAttempt.Load(); nano != 0 {
		stats.LastAttempt = time.Unix(0, nano)
	}
	return stats
}
