// snapshot.go: Immutable configuration snapshots behind an atomic pointer
//
// The snapshot store is the only state shared between the refresher and
// readers. Snapshots are replaced, never mutated, so reads take no locks.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// Snapshot is one complete, immutable view of the remote configuration:
// the flat key/value map plus the provider version token it was built from.
// Revision is assigned by the store at publish time and increases by one per
// published snapshot; BuiltAt is the publish timestamp.
type Snapshot struct {
	Version  string
	Values   map[string]string
	Revision uint64
	BuiltAt  time.Time
}

// emptySnapshot is what Current returns before the first publish. Kept as a
// package variable so readers never see a nil snapshot.
var emptySnapshot = &Snapshot{Values: map[string]string{}}

// snapshotStore holds the currently visible snapshot. One writer (the
// refresher, or the constructor before the refresher exists) publishes;
// any number of readers call Current concurrently without blocking.
type snapshotStore struct {
	current  atomic.Pointer[Snapshot]
	revision atomic.Uint64
}

// Current returns the currently published snapshot. Never nil.
func (st *snapshotStore) Current() *Snapshot {
	if snap := st.current.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// Publish makes a fully built snapshot visible, assigning its revision.
// The compare-and-swap loop refuses to replace a snapshot with a higher
// revision, so visibility stays monotonic even if a second writer ever
// raced the refresher.
func (st *snapshotStore) Publish(next *Snapshot) bool {
	next.Revision = st.revision.Add(1)
	next.BuiltAt = timecache.CachedTime()

	for {
		old := st.current.Load()
		if old != nil && old.Revision >= next.Revision {
			return false
		}
		if st.current.CompareAndSwap(old, next) {
			return true
		}
		// Retry: another publish landed between Load and CompareAndSwap
	}
}
