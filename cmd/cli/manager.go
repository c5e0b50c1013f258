// Package cli provides the command-line interface for Hermes remote configuration.
//
// This package implements a high-performance CLI using the Orpheus framework,
// exposing the full remote configuration pipeline from the command line.
//
// Features:
// - Ultra-fast command parsing with zero-allocation hot paths
// - Git-style subcommands with shell auto-completion
// - One-shot document inspection (fetch, get, keys, validate)
// - Continuous watch mode built on the refreshing Source
// - Audit database statistics and maintenance
//
// Architecture:
// - Manager: Core CLI orchestration and command routing
// - Handlers: Individual command implementations
// - Utils: Shared helpers for one-shot sources and document flattening
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"github.com/agilira/hermes"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager provides CLI operations for Hermes remote configuration sources.
// Built on top of the Orpheus framework for fast routing with minimal
// allocations.
type Manager struct {
	app         *orpheus.App
	auditLogger *hermes.AuditLogger // Optional audit integration
}

// NewManager creates a new CLI manager powered by Orpheus.
// Provides git-style subcommands covering the whole fetch, flatten and
// refresh pipeline.
func NewManager() *Manager {
	app := orpheus.New("hermes").
		SetDescription("Self-refreshing remote configuration for services").
		SetVersion("1.0.0")

	manager := &Manager{
		app: app,
	}

	manager.setupSourceCommands()
	manager.setupWatchCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit enables audit logging for all CLI operations.
func (m *Manager) WithAudit(auditLogger *hermes.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// Command Setup Methods

// setupSourceCommands configures the one-shot document commands.
// Each performs a single fetch against the remote backend and exits.
func (m *Manager) setupSourceCommands() {
	// fetch <url> [--raw] [--timeout=30s]
	fetchCmd := orpheus.NewCommand("fetch", "Fetch a remote configuration document")
	fetchCmd.SetHandler(m.handleFetch)
	fetchCmd.AddBoolFlag("raw", "r", false, "Print the raw document body")
	fetchCmd.AddFlag("timeout", "t", "30s", "Fetch timeout")
	m.app.AddCommand(fetchCmd)

	// get <url> <key> [--timeout=30s]
	getCmd := orpheus.NewCommand("get", "Get a single flattened configuration value")
	getCmd.SetHandler(m.handleGet)
	getCmd.AddFlag("timeout", "t", "30s", "Fetch timeout")
	m.app.AddCommand(getCmd)

	// keys <url> [--prefix=] [--values] [--timeout=30s]
	keysCmd := orpheus.NewCommand("keys", "List flattened configuration keys")
	keysCmd.SetHandler(m.handleKeys)
	keysCmd.AddFlag("prefix", "p", "", "Key prefix filter")
	keysCmd.AddBoolFlag("values", "v", false, "Print values alongside keys")
	keysCmd.AddFlag("timeout", "t", "30s", "Fetch timeout")
	m.app.AddCommand(keysCmd)

	// validate <url> [--timeout=30s]
	validateCmd := orpheus.NewCommand("validate", "Validate a remote configuration document")
	validateCmd.SetHandler(m.handleValidate)
	validateCmd.AddFlag("timeout", "t", "30s", "Fetch timeout")
	m.app.AddCommand(validateCmd)
}

// setupWatchCommands configures the 'watch' command for continuous refresh.
// Runs a real Source with its background refresher and reports changes.
func (m *Manager) setupWatchCommands() {
	watchCmd := orpheus.NewCommand("watch", "Watch a remote configuration source for changes")
	watchCmd.SetHandler(m.handleWatch)
	watchCmd.AddFlag("interval", "i", "30s", "Refresh interval")
	watchCmd.AddFlag("timeout", "t", "30s", "Fetch timeout")
	watchCmd.AddBoolFlag("verbose", "v", false, "Print changed keys on every refresh")
	m.app.AddCommand(watchCmd)
}

// setupUtilityCommands configures diagnostics and maintenance commands.
func (m *Manager) setupUtilityCommands() {
	// providers command
	providersCmd := orpheus.NewCommand("providers", "List registered remote providers")
	providersCmd.SetHandler(m.handleProviders)
	m.app.AddCommand(providersCmd)

	// health <url> [--timeout=10s]
	healthCmd := orpheus.NewCommand("health", "Check remote backend health")
	healthCmd.SetHandler(m.handleHealth)
	healthCmd.AddFlag("timeout", "t", "10s", "Health check timeout")
	m.app.AddCommand(healthCmd)

	// audit command group
	auditCmd := orpheus.NewCommand("audit", "Audit trail management")

	statsCmd := auditCmd.Subcommand("stats", "Show audit database statistics", m.handleAuditStats)
	statsCmd.AddFlag("output", "o", "", "Audit output file (defaults to the unified audit database)")

	maintainCmd := auditCmd.Subcommand("maintain", "Run audit database maintenance", m.handleAuditMaintain)
	maintainCmd.AddFlag("output", "o", "", "Audit output file (defaults to the unified audit database)")

	m.app.AddCommand(auditCmd)

	// info command
	infoCmd := orpheus.NewCommand("info", "System information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose system information")
	m.app.AddCommand(infoCmd)

	// completion command
	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}
