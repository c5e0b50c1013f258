// audit_backend.go: Backend interface and implementations for Hermes audit system
//
// This file defines the pluggable backend architecture for audit logging,
// supporting multiple storage backends (JSONL, SQLite) with transparent
// fallback and unified API.
//
// Features:
// - Backend interface for pluggable audit storage
// - Automatic backend selection based on configuration
// - Comprehensive error handling and recovery
// - Thread-safe operations with proper resource management
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend defines the interface for audit storage backends.
//
// This interface abstracts the storage mechanism, allowing transparent
// switching between JSONL files, SQLite databases, or future backends
// without changing the public API.
type auditBackend interface {
	// Write persists a batch of audit events to the backend.
	// Implementations must handle concurrent writes safely.
	Write(events []AuditEvent) error

	// Flush ensures all pending writes are committed to storage.
	// This is called during graceful shutdown and periodic flushes.
	Flush() error

	// Close releases all resources and performs final cleanup.
	// After calling Close, the backend must not be used again.
	Close() error

	// Maintenance performs backend-specific maintenance operations.
	// For SQLite: cleans old entries, optimizes database, updates statistics.
	// For JSONL: archives old files, compresses historical data.
	Maintenance() error

	// GetStats returns statistics about the audit backend.
	// For SQLite: detailed database statistics with event counts.
	// For JSONL: basic file statistics (implementation may return limited data).
	GetStats() (*AuditDatabaseStats, error)
}

// createAuditBackend creates the appropriate audit backend based on configuration.
//
// Backend selection strategy:
//  1. Always attempt SQLite unified backend first (for consolidation)
//  2. Fall back to JSONL if SQLite is unavailable or fails
//  3. Return error only if both backends fail initialization
//
// This ensures maximum compatibility while providing unified audit trails
// when possible.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	// Check if user explicitly requested JSONL format via .jsonl extension
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	// For all other cases, try SQLite unified backend first for consolidation
	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	// Fall back to JSONL backend if SQLite fails
	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}

	return jsonlBackend, nil
}

// getUnifiedAuditPath returns the standard path for the unified SQLite audit database.
//
// The unified database consolidates all Hermes audit events from the system
// into a single queryable database, regardless of the original OutputFile
// configuration. This enables cross-source correlation and simplified
// audit management.
func getUnifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "hermes", "system-audit.db")
}

// sqliteAuditBackend implements auditBackend using SQLite for unified audit storage.
//
// This backend consolidates all Hermes audit events into a single SQLite
// database regardless of the original OutputFile configuration. It tracks
// the original source configuration for backward compatibility and debugging.
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	sourceFile string // Original OutputFile for source tracking
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

// newSQLiteBackend creates a new SQLite audit backend with unified storage.
//
// This function initializes the SQLite database, creates the schema if needed,
// and prepares statements for efficient batch inserts. The database uses
// WAL mode for concurrent access and optimal performance.
func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath, err := setupDatabasePath(config)
	if err != nil {
		return nil, err
	}

	db, err := openSQLiteDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	backend := &sqliteAuditBackend{
		db:         db,
		dbPath:     dbPath,
		sourceFile: config.OutputFile,
	}

	if err := backend.initializeSchema(); err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to prepare statements (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}

	// Clean up old entries on startup; maintenance failures are not fatal
	if err := backend.performMaintenance(); err != nil {
		_ = err
	}

	return backend, nil
}

// setupDatabasePath determines and creates database path
func setupDatabasePath(config AuditConfig) (string, error) {
	// Respect OutputFile if specified with .db extension (useful for tests
	// and custom setups), otherwise use the unified path for consolidation
	var dbPath string
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	} else {
		dbPath = getUnifiedAuditPath()
	}

	// Ensure directory exists with appropriate permissions
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return "", fmt.Errorf("failed to create audit database directory: %w", err)
	}

	return dbPath, nil
}

// openSQLiteDatabase opens and tests SQLite database connection.
//
// The pragmas are chosen for audit logging workloads: WAL mode so readers
// never block the writer, a busy timeout for multi-process deployments,
// NORMAL synchronous for balanced durability, and a modest page cache.
func openSQLiteDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Test database connection
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database (close error: %v): %w", closeErr, err)
		}
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	return db, nil
}

// initializeSchema creates the unified audit schema with versioning support.
//
// Schema versioning ensures safe migrations across Hermes updates. All table
// and index creation is handled by the migration system.
func (s *sqliteAuditBackend) initializeSchema() error {
	if err := s.ensureSchemaVersion(); err != nil {
		return fmt.Errorf("schema version migration failed: %w", err)
	}
	return nil
}

// ensureSchemaVersion checks the current schema version and performs migrations if needed.
//
// This function implements forward-compatible schema evolution:
//   - Version 1: Initial schema with audit tracking and indexes (current)
//   - Future versions: Will add new fields/tables without breaking compatibility
//
// Migration is atomic and safe for concurrent access.
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	const currentSchemaVersion = 1

	// Create schema_info table if it doesn't exist
	createSchemaInfoSQL := `
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(createSchemaInfoSQL); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	// Check current version
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			// First time setup
			version = 0
		} else {
			return fmt.Errorf("failed to check schema version: %w", err)
		}
	}

	// Perform migrations if needed
	if version < currentSchemaVersion {
		if err := s.migrateSchema(version, currentSchemaVersion); err != nil {
			return fmt.Errorf("schema migration from v%d to v%d failed: %w", version, currentSchemaVersion, err)
		}

		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO schema_info (version, updated_at)
			VALUES (?, CURRENT_TIMESTAMP)
		`, currentSchemaVersion)
		if err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	return nil
}

// migrateSchema performs incremental schema migrations from oldVersion to newVersion.
//
// Migrations are designed to be:
//   - Atomic (transaction-based)
//   - Backward compatible (old data preserved)
//   - Recoverable (can be rerun safely)
func (s *sqliteAuditBackend) migrateSchema(oldVersion, newVersion int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollErr := tx.Rollback(); rollErr != nil {
				_ = rollErr
			}
		}
	}()

	// Apply migrations incrementally
	for version := oldVersion; version < newVersion; version++ {
		switch version {
		case 0:
			if err := s.migrateToV1(tx); err != nil {
				return fmt.Errorf("migration to v1 failed: %w", err)
			}
		default:
			return fmt.Errorf("unknown migration path from version %d", version)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	return nil
}

// migrateToV1 creates the audit table schema (version 1).
func (s *sqliteAuditBackend) migrateToV1(tx *sql.Tx) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,

		-- Source tracking for backward compatibility
		original_output_file TEXT NOT NULL,

		-- Remote configuration information
		remote_url TEXT,
		old_version TEXT,
		new_version TEXT,

		-- Process and correlation tracking
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,

		-- Additional context
		context TEXT, -- JSON blob for flexible metadata
		checksum TEXT,

		-- Indexing and performance
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := tx.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level)",
		"CREATE INDEX IF NOT EXISTS idx_audit_component ON audit_events(component)",
		"CREATE INDEX IF NOT EXISTS idx_audit_remote_url ON audit_events(remote_url)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_events(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_event_component ON audit_events(event, component, timestamp)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// prepareStatements prepares SQL statements for efficient batch operations.
//
// Prepared statements improve performance for high-frequency audit logging
// by avoiding SQL parsing overhead on each insert operation.
func (s *sqliteAuditBackend) prepareStatements() error {
	insertSQL := `
	INSERT INTO audit_events (
		timestamp, level, event, component,
		original_output_file, process_id, process_name,
		remote_url, old_version, new_version, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := s.db.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.insertStmt = stmt
	return nil
}

// performMaintenance runs database maintenance tasks to keep the audit system performant.
//
// Maintenance tasks include cleaning old audit events beyond the retention
// period and optimizing the database. This is called on startup and can be
// invoked periodically in production environments.
func (s *sqliteAuditBackend) performMaintenance() error {
	const defaultRetentionDays = 90 // Keep 3 months of audit data by default

	cleanupSQL := `
		DELETE FROM audit_events
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`

	if _, err := s.db.Exec(cleanupSQL, defaultRetentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old audit events: %w", err)
	}

	optimizationTasks := []string{
		"PRAGMA optimize",             // Update query planner statistics
		"PRAGMA wal_checkpoint(FULL)", // Ensure WAL is properly checkpointed
	}

	for _, task := range optimizationTasks {
		if _, err := s.db.Exec(task); err != nil {
			// Non-critical optimizations must not fail maintenance
			continue
		}
	}

	return nil
}

// Write persists a batch of audit events to the SQLite database.
//
// This method handles concurrent access safely and performs batch inserts
// within a transaction for optimal performance and consistency.
func (s *sqliteAuditBackend) Write(events []AuditEvent) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	s.mu.RUnlock()

	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to rollback audit transaction: %v\n", rollbackErr)
			}
		}
	}()

	// Prepare transaction-scoped statement
	txStmt := tx.Stmt(s.insertStmt)
	defer func() {
		if closeErr := txStmt.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close transaction statement: %v\n", closeErr)
		}
	}()

	for _, event := range events {
		err = s.insertEvent(txStmt, event)
		if err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}

	return nil
}

// insertEvent inserts a single audit event using the provided statement.
func (s *sqliteAuditBackend) insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	contextJSON := ""
	if event.Context != nil {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("failed to serialize context: %w", err)
		}
		contextJSON = string(data)
	}

	_, err := stmt.Exec(
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.Component,
		s.sourceFile, // Track original output file configuration
		event.ProcessID,
		event.ProcessName,
		event.RemoteURL,
		event.OldVersion,
		event.NewVersion,
		contextJSON,
		event.Checksum,
	)

	return err
}

// Flush ensures all pending writes are committed to storage.
//
// For SQLite with WAL mode, this forces a checkpoint to ensure
// durability of recent transactions.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil // No-op for closed backend
	}
	s.mu.RUnlock()

	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}

	return nil
}

// Maintenance performs database maintenance operations.
// This method is safe to call concurrently and implements the auditBackend interface.
func (s *sqliteAuditBackend) Maintenance() error {
	return s.performMaintenance()
}

// GetStats returns comprehensive database statistics.
// This method is safe to call concurrently and implements the auditBackend interface.
func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	return s.getDatabaseStats()
}

// Close releases all resources and performs final cleanup.
//
// This method automatically performs a final Flush() to ensure all pending
// data in WAL mode is committed to the database before closing the
// connection. It is safe to call multiple times and is thread-safe.
func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Already closed
	}

	var errs []error

	// Final flush ensures all WAL data is committed before closing.
	// Temporarily unlock to allow Flush() to acquire the read lock.
	s.mu.Unlock()
	if err := s.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush audit backend during close: %w", err))
	}
	s.mu.Lock()

	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	s.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}

	return nil
}

// AuditDatabaseStats represents statistics about the unified audit database.
type AuditDatabaseStats struct {
	TotalEvents       int64            `json:"total_events"`
	EventsByLevel     map[string]int64 `json:"events_by_level"`
	EventsByComponent map[string]int64 `json:"events_by_component"`
	OldestEvent       *time.Time       `json:"oldest_event"`
	NewestEvent       *time.Time       `json:"newest_event"`
	DatabaseSize      int64            `json:"database_size_bytes"`
	SchemaVersion     int              `json:"schema_version"`
}

// getDatabaseStats retrieves comprehensive statistics about the audit database.
//
// These statistics are useful for monitoring audit system health, planning
// retention policies, and debugging audit correlation issues.
func (s *sqliteAuditBackend) getDatabaseStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel:     make(map[string]int64),
		EventsByComponent: make(map[string]int64),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}

	if err := s.getEventsByLevel(stats); err != nil {
		return nil, err
	}

	if err := s.getEventsByComponent(stats); err != nil {
		return nil, err
	}

	if err := s.getEventTimeRange(stats); err != nil {
		return nil, err
	}

	if err := s.getSchemaVersion(stats); err != nil {
		return nil, err
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}

// getEventsByLevel gets events grouped by level
func (s *sqliteAuditBackend) getEventsByLevel(stats *AuditDatabaseStats) error {
	rows, err := s.db.Query("SELECT level, COUNT(*) FROM audit_events GROUP BY level")
	if err != nil {
		return fmt.Errorf("failed to get events by level: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return fmt.Errorf("failed to scan level stats: %w", err)
		}
		stats.EventsByLevel[level] = count
	}
	return rows.Err()
}

// getEventsByComponent gets events grouped by component
func (s *sqliteAuditBackend) getEventsByComponent(stats *AuditDatabaseStats) error {
	rows, err := s.db.Query("SELECT component, COUNT(*) FROM audit_events GROUP BY component")
	if err != nil {
		return fmt.Errorf("failed to get events by component: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	for rows.Next() {
		var component string
		var count int64
		if err := rows.Scan(&component, &count); err != nil {
			return fmt.Errorf("failed to scan component stats: %w", err)
		}
		stats.EventsByComponent[component] = count
	}
	return rows.Err()
}

// getEventTimeRange gets the oldest and newest event timestamps
func (s *sqliteAuditBackend) getEventTimeRange(stats *AuditDatabaseStats) error {
	var oldestStr, newestStr sql.NullString
	err := s.db.QueryRow(`
		SELECT
			MIN(created_at) as oldest,
			MAX(created_at) as newest
		FROM audit_events
	`).Scan(&oldestStr, &newestStr)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to get event time range: %w", err)
	}

	if oldestStr.Valid {
		if oldest, err := time.Parse("2006-01-02 15:04:05", oldestStr.String); err == nil {
			stats.OldestEvent = &oldest
		}
	}

	if newestStr.Valid {
		if newest, err := time.Parse("2006-01-02 15:04:05", newestStr.String); err == nil {
			stats.NewestEvent = &newest
		}
	}

	return nil
}

// getSchemaVersion gets the current database schema version
func (s *sqliteAuditBackend) getSchemaVersion(stats *AuditDatabaseStats) error {
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	return nil
}

// jsonlAuditBackend implements auditBackend using JSONL files.
//
// This backend provides compatibility with JSONL-based audit pipelines
// (log shippers, grep-based forensics) while implementing the same
// interface as the SQLite backend.
type jsonlAuditBackend struct {
	file       *os.File
	sourceFile string
	mu         sync.Mutex
	closed     bool
}

// newJSONLBackend creates a new JSONL audit backend.
//
// This function provides a fallback mechanism when SQLite is not available,
// maintaining compatibility with existing JSONL-based audit configurations.
func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	// Open audit file with secure permissions (owner read/write only)
	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}

	return &jsonlAuditBackend{
		file:       file,
		sourceFile: config.OutputFile,
	}, nil
}

// Write persists a batch of audit events to the JSONL file.
//
// Each event is serialized as a JSON object on a single line,
// following the JSONL format specification.
func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}

		if _, err := j.file.Write(data); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}

		if _, err := j.file.Write([]byte("\n")); err != nil {
			return fmt.Errorf("failed to write audit event newline: %w", err)
		}
	}

	return nil
}

// Flush ensures all pending writes are committed to storage.
//
// For JSONL files, this forces an fsync to ensure data persistence.
func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil // No-op for closed backend
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}

	return nil
}

// Maintenance performs file-based maintenance operations for JSONL backend.
// JSONL files are self-maintaining; rotation and archiving are left to
// external log management tooling.
func (j *jsonlAuditBackend) Maintenance() error {
	return nil
}

// GetStats returns basic file statistics for JSONL backend.
// This provides limited statistics compared to SQLite backend.
func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel:     make(map[string]int64),
		EventsByComponent: make(map[string]int64),
		SchemaVersion:     1, // JSONL format is version 1
	}

	if info, err := os.Stat(j.sourceFile); err == nil {
		stats.DatabaseSize = info.Size()
	}

	// Event counting would require parsing the entire file, which could be
	// expensive for large trails. Only size statistics are reported.
	return stats, nil
}

// Close releases all resources and performs final cleanup.
//
// This method ensures proper cleanup of file handles and is safe to call
// multiple times.
func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil // Already closed
	}

	var err error
	if j.file != nil {
		err = j.file.Close()
	}

	j.closed = true
	return err
}
