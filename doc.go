// Package hermes provides a self-refreshing remote configuration source
// for Go applications, combining pluggable remote providers, a deterministic
// flattening pipeline, and lock-free snapshot access in a single, cohesive
// system.
//
// # Philosophy: Configuration Follows the Deployment
//
// Hermes is built on the principle that configuration lives next to the
// infrastructure, not inside the binary. A Source pulls a configuration
// document from a remote backend, flattens it into dotted string keys, and
// republishes it atomically on a fixed interval, so applications observe
// remote changes without restarts and without partially applied updates.
//
// # Architecture Overview
//
// Hermes consists of five integrated subsystems:
//  1. **Provider Registry**: URL-scheme dispatch to pluggable remote backends (Consul, Redis, HTTP)
//  2. **Flattening Pipeline**: Normalization and deterministic flattening of JSON/YAML documents
//  3. **Atomic Snapshot Store**: Immutable snapshots behind an atomic pointer for lock-free reads
//  4. **Version-Gated Refresher**: Background polling that skips redundant work when nothing changed
//  5. **Comprehensive Audit System**: Refresh lifecycle logging with SQLite backend
//
// # Quick Start
//
// Create a source and read flattened values:
//
//	source, err := hermes.New(hermes.Settings{
//		URL:                  "consul://127.0.0.1:8500/config/myapp",
//		Application:          "myapp",
//		Environment:          "prod",
//		DownloadPeriodically: true,
//	})
//	if err != nil {
//		log.Fatal(err) // first fetch failed: the remote config is required
//	}
//	defer source.Stop()
//
//	if port, ok := source.Get("server.port"); ok {
//		server.UpdatePort(port)
//	}
//
// The first fetch happens synchronously inside New. A source that cannot
// load its initial configuration is a deployment error, so construction
// fails fast instead of starting with an empty view.
//
// # Deterministic Flattening
//
// Remote documents arrive as arbitrary JSON or YAML. Hermes normalizes the
// document and flattens nested structures into dotted keys with string
// values:
//
//	{"server": {"port": 8080, "hosts": ["a", "b"]}}
//
// becomes:
//
//	server.port  = "8080"
//	server.hosts = "a,b"
//
// Sequences are joined with commas at their owning key, and a document whose
// top level is not a mapping is wrapped under the "content" key. Null values
// are rejected during refresh so a broken document never replaces a good
// snapshot.
//
// # Lock-Free Snapshot Reads
//
// Readers never take a lock. Get, Keys and Values operate on an immutable
// Snapshot reached through an atomic pointer; the background refresher is
// the only writer and publishes complete snapshots with a monotonic revision
// counter. A reader that sees revision N never observes an older revision
// afterwards.
//
//	snap := source.Snapshot()
//	fmt.Println(snap.Version, snap.Revision, len(snap.Values))
//
// # Ultra-Fast Typed Binding
//
// The zero-reflection binding system maps flattened values onto Go variables
// through unsafe.Pointer targets with compile-time type discrimination:
//
//	var dbHost string
//	var dbPort int
//	var timeout time.Duration
//
//	err := source.Bind().
//		BindString(&dbHost, "database.host", "localhost").
//		BindInt(&dbPort, "database.port", 5432).
//		BindDuration(&timeout, "database.timeout", 30*time.Second).
//		Apply()
//
// # Remote Providers
//
// Providers register themselves by URL scheme. Importing a provider package
// for side effects is enough to make its scheme resolvable:
//
//	import (
//		_ "github.com/agilira/hermes/providers/consul"
//		_ "github.com/agilira/hermes/providers/redis"
//		_ "github.com/agilira/hermes/providers/http"
//	)
//
// Each provider reports an opaque version token alongside the document
// (Consul ModifyIndex, HTTP ETag, content hash). The refresher compares
// tokens and skips parsing and publishing entirely when the token is
// unchanged, so steady-state refresh cycles cost one round trip and nothing
// else.
//
// Custom backends implement the Provider interface and register at startup:
//
//	hermes.RegisterProvider(&MyVaultProvider{})
//
// # Comprehensive Audit System
//
// Built-in audit logging records the refresh lifecycle with tamper-detection
// checksums and a unified SQLite backend:
//
//	auditConfig := hermes.AuditConfig{
//		Enabled:       true,
//		OutputFile:    "/var/log/hermes/audit.jsonl", // .jsonl selects the JSONL backend
//		MinLevel:      hermes.AuditInfo,
//		BufferSize:    1000,
//		FlushInterval: 5 * time.Second,
//	}
//
// Audit events include:
//   - Source lifecycle (source_created, source_start, source_stop)
//   - Refresh outcomes with version transitions (refresh_applied, refresh_skipped, refresh_failed)
//   - Tamper-detection checksums using SHA-256
//   - Process context and timestamps
//
// # Failure Tolerance
//
// After the first successful load, refresh failures never tear down the
// source. A failed fetch or an invalid document is audited, reported to the
// configured ErrorHandler, and the previous snapshot stays visible until a
// later cycle succeeds:
//
//	settings := hermes.Settings{
//		URL: "https://config.example.com/myapp.json",
//		ErrorHandler: func(err error, configURL string) {
//			metrics.Increment("config.refresh_errors")
//			log.Printf("refresh error from %s: %v", configURL, err)
//		},
//	}
//
// # Thread Safety and Concurrency
//
// All Hermes components are thread-safe and optimized for concurrent access:
//   - Snapshot reads are lock-free through atomic pointers
//   - Source lifecycle uses CompareAndSwap state transitions
//   - Audit logging uses buffered writes with proper synchronization
//   - Stop is idempotent and waits for the in-flight refresh cycle to finish
//
// # Performance Optimizations
//
// Hermes is designed for read-heavy production workloads:
//   - **Lock-free reads**: Atomic snapshot pointer, zero contention between readers
//   - **Version gating**: Unchanged remote documents cost one fetch and zero parsing
//   - **Time optimization**: Uses go-timecache for 121x faster timestamps
//   - **SQLite backend optimization**: Prepared statements and transaction batching for audit performance
//
// Repository: https://github.com/agilira/hermes
package hermes
