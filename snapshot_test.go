// snapshot_test.go - Tests for the atomic snapshot store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSnapshotStore_CurrentNeverNil(t *testing.T) {
	var store snapshotStore

	snap := store.Current()
	if snap == nil {
		t.Fatal("Current() returned nil before first publish")
	}
	if snap.Values == nil {
		t.Fatal("Empty snapshot must have a non-nil Values map")
	}
	if snap.Revision != 0 {
		t.Errorf("Expected revision 0 before first publish, got %d", snap.Revision)
	}
	if len(snap.Values) != 0 {
		t.Errorf("Expected empty values, got %v", snap.Values)
	}
}

func TestSnapshotStore_PublishAssignsRevisions(t *testing.T) {
	var store snapshotStore

	for i := 1; i <= 5; i++ {
		published := store.Publish(&Snapshot{
			Version: fmt.Sprintf("v%d", i),
			Values:  map[string]string{"n": fmt.Sprintf("%d", i)},
		})
		if !published {
			t.Fatalf("Publish %d rejected", i)
		}

		current := store.Current()
		if current.Revision != uint64(i) {
			t.Errorf("Expected revision %d, got %d", i, current.Revision)
		}
		if current.Version != fmt.Sprintf("v%d", i) {
			t.Errorf("Expected version v%d, got %s", i, current.Version)
		}
		if current.BuiltAt.IsZero() {
			t.Error("Expected BuiltAt to be stamped at publish")
		}
	}
}

func TestSnapshotStore_ReadersSeeCompleteSnapshots(t *testing.T) {
	var store snapshotStore

	// Each published snapshot carries internally consistent values: every
	// key maps to the same generation marker. A torn read would mix them.
	publish := func(generation int) {
		marker := fmt.Sprintf("g%d", generation)
		store.Publish(&Snapshot{
			Version: marker,
			Values: map[string]string{
				"first":  marker,
				"second": marker,
				"third":  marker,
			},
		})
	}
	publish(0)

	done := make(chan struct{})
	var wg sync.WaitGroup

	for reader := 0; reader < 8; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastRevision uint64
			for {
				select {
				case <-done:
					return
				default:
				}

				snap := store.Current()
				if snap.Revision < lastRevision {
					t.Errorf("Revision moved backwards: %d after %d", snap.Revision, lastRevision)
					return
				}
				lastRevision = snap.Revision

				if snap.Values["first"] != snap.Values["second"] ||
					snap.Values["second"] != snap.Values["third"] {
					t.Errorf("Torn snapshot observed: %v", snap.Values)
					return
				}
				if snap.Version != snap.Values["first"] {
					t.Errorf("Version %s does not match values %v", snap.Version, snap.Values)
					return
				}
			}
		}()
	}

	for generation := 1; generation <= 200; generation++ {
		publish(generation)
		time.Sleep(100 * time.Microsecond)
	}
	close(done)
	wg.Wait()

	if got := store.Current().Revision; got != 201 {
		t.Errorf("Expected final revision 201, got %d", got)
	}

	t.Logf("✅ 8 readers observed 200 publishes without torn or regressing snapshots")
}

func TestSnapshotStore_ConcurrentPublishers(t *testing.T) {
	var store snapshotStore

	const publishers = 4
	const perPublisher = 100

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				store.Publish(&Snapshot{
					Version: fmt.Sprintf("p%d-%d", id, i),
					Values:  map[string]string{"writer": fmt.Sprintf("%d", id)},
				})
			}
		}(p)
	}
	wg.Wait()

	// Every publish got a unique revision; the visible snapshot is the one
	// with the highest revision that won its CAS.
	final := store.Current()
	if final.Revision == 0 {
		t.Fatal("No snapshot visible after concurrent publishes")
	}
	if final.Revision > publishers*perPublisher {
		t.Errorf("Revision %d exceeds publish count %d", final.Revision, publishers*perPublisher)
	}
}
