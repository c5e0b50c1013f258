// Command handlers for the Hermes CLI
//
// This file contains all command handler implementations for the
// Orpheus-powered CLI. One-shot commands build a non-refreshing Source,
// read it and exit; watch runs a real refreshing Source until interrupted.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/hermes"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Command Handlers

// handleFetch fetches the remote document once and prints its metadata.
// Performance: network bound, a single provider round trip.
func (m *Manager) handleFetch(ctx *orpheus.Context) error {
	configURL := ctx.GetArg(0)
	if configURL == "" {
		return errors.New(hermes.ErrCodeInvalidURL, "missing configuration URL argument")
	}

	// Audit command execution (optional)
	if m.auditLogger != nil {
		m.auditLogger.LogSourceEvent("cli_fetch", configURL, nil)
	}

	timeout, err := flagDuration(ctx, "timeout")
	if err != nil {
		return err
	}

	doc, err := fetchDocument(configURL, timeout)
	if err != nil {
		return err
	}

	if ctx.GetFlagBool("raw") {
		_, _ = os.Stdout.Write(doc.Data)
		if len(doc.Data) > 0 && doc.Data[len(doc.Data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	format := hermes.DetectFormat(doc.ContentType, doc.Data)
	fmt.Printf("URL:          %s\n", configURL)
	fmt.Printf("Version:      %s\n", doc.Version)
	fmt.Printf("Format:       %s\n", format.String())
	if doc.ContentType != "" {
		fmt.Printf("Content-Type: %s\n", doc.ContentType)
	}
	fmt.Printf("Size:         %d bytes\n", len(doc.Data))
	fmt.Printf("Fetched:      %s\n", doc.FetchedAt.Format(time.RFC3339))
	return nil
}

// handleGet fetches, flattens and prints a single configuration value.
// Performance: network bound; the flatten pipeline itself is microseconds.
func (m *Manager) handleGet(ctx *orpheus.Context) error {
	configURL := ctx.GetArg(0)
	key := ctx.GetArg(1)
	if configURL == "" || key == "" {
		return errors.New(hermes.ErrCodeInvalidURL, "usage: get <url> <key>")
	}

	// Audit command execution (optional)
	if m.auditLogger != nil {
		m.auditLogger.LogSourceEvent("cli_get", configURL, map[string]interface{}{"key": key})
	}

	source, err := openOneShotSource(ctx, configURL)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	value, ok := source.Get(key)
	if !ok {
		return errors.New(hermes.ErrCodeConfigNotFound, fmt.Sprintf("key '%s' not found", key))
	}

	fmt.Println(value)
	return nil
}

// handleKeys fetches, flattens and lists configuration keys with optional
// prefix filtering.
func (m *Manager) handleKeys(ctx *orpheus.Context) error {
	configURL := ctx.GetArg(0)
	if configURL == "" {
		return errors.New(hermes.ErrCodeInvalidURL, "missing configuration URL argument")
	}
	prefix := ctx.GetFlagString("prefix")
	withValues := ctx.GetFlagBool("values")

	// Audit command execution (optional)
	if m.auditLogger != nil {
		m.auditLogger.LogSourceEvent("cli_keys", configURL, nil)
	}

	source, err := openOneShotSource(ctx, configURL)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	keys := source.Keys()
	matched := keys[:0]
	for _, key := range keys {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}

	if len(matched) == 0 {
		if prefix != "" {
			fmt.Printf("No keys found with prefix '%s'\n", prefix)
		} else {
			fmt.Println("No configuration keys found")
		}
		return nil
	}

	fmt.Printf("Configuration keys at %s (version %s):\n", configURL, source.Version())
	for _, key := range matched {
		if withValues {
			value, _ := source.Get(key)
			fmt.Printf("  %s = %s\n", key, value)
		} else {
			fmt.Printf("  %s\n", key)
		}
	}
	return nil
}

// handleValidate fetches the remote document and runs it through the full
// parse and flatten pipeline, reporting the first defect found.
func (m *Manager) handleValidate(ctx *orpheus.Context) error {
	configURL := ctx.GetArg(0)
	if configURL == "" {
		return errors.New(hermes.ErrCodeInvalidURL, "missing configuration URL argument")
	}

	timeout, err := flagDuration(ctx, "timeout")
	if err != nil {
		return err
	}

	provider, err := hermes.GetProvider(configURL)
	if err != nil {
		return err
	}
	if err := provider.Validate(configURL); err != nil {
		fmt.Printf("Invalid URL: %v\n", err)
		return err
	}

	doc, err := fetchDocument(configURL, timeout)
	if err != nil {
		fmt.Printf("Fetch failed: %v\n", err)
		return err
	}

	format := hermes.DetectFormat(doc.ContentType, doc.Data)
	flat, err := flattenDocument(doc)
	if err != nil {
		fmt.Printf("Invalid %s document: %v\n", format.String(), err)
		return err
	}

	fmt.Printf("Valid %s document: %d keys (version %s)\n", format.String(), len(flat), doc.Version)
	return nil
}

// handleWatch runs a refreshing Source against the remote backend and
// reports every published snapshot until interrupted.
// Performance: idle between refreshes; reads are lock-free snapshot loads.
func (m *Manager) handleWatch(ctx *orpheus.Context) error {
	configURL := ctx.GetArg(0)
	if configURL == "" {
		return errors.New(hermes.ErrCodeInvalidURL, "missing configuration URL argument")
	}

	interval, err := flagDuration(ctx, "interval")
	if err != nil {
		return err
	}
	timeout, err := flagDuration(ctx, "timeout")
	if err != nil {
		return err
	}
	verbose := ctx.GetFlagBool("verbose")

	// Audit command execution (optional)
	if m.auditLogger != nil {
		m.auditLogger.LogSourceEvent("cli_watch", configURL, nil)
	}

	settings := hermes.Settings{
		URL:                  configURL,
		SourceName:           "hermes-watch",
		DownloadPeriodically: true,
		DownloadInterval:     interval,
		FetchTimeout:         timeout,
		Audit:                hermes.DisabledAuditConfig(),
		ErrorHandler: func(err error, url string) {
			fmt.Fprintf(os.Stderr, "refresh failed for %s: %v\n", url, err)
		},
	}

	source, err := hermes.New(settings)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	fmt.Printf("Watching %s (interval: %v)\n", configURL, interval)
	fmt.Println("Press Ctrl+C to stop...")

	lastRevision := source.Revision()
	lastValues := source.Values()
	fmt.Printf("Initial snapshot: version %s, %d keys\n", source.Version(), len(lastValues))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Poll faster than the refresh interval so published snapshots are
	// reported promptly; the reads are wait-free.
	ticker := time.NewTicker(pollInterval(interval))
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println()
			stats := source.Stats()
			fmt.Printf("Stopped after %d refreshes, %d unchanged, %d failures\n",
				stats.RefreshCount, stats.SkippedCount, stats.FailureCount)
			return nil
		case <-ticker.C:
			revision := source.Revision()
			if revision == lastRevision {
				continue
			}
			lastRevision = revision

			values := source.Values()
			fmt.Printf("Configuration changed: version %s, revision %d, %d keys\n",
				source.Version(), revision, len(values))
			if verbose {
				printChanges(lastValues, values)
			}
			lastValues = values
		}
	}
}

// handleProviders lists the registered remote providers by scheme.
func (m *Manager) handleProviders(ctx *orpheus.Context) error {
	providers := hermes.ListProviders()
	if len(providers) == 0 {
		fmt.Println("No providers registered. Import provider packages to register them:")
		fmt.Println("  _ \"github.com/agilira/hermes/providers/consul\"")
		fmt.Println("  _ \"github.com/agilira/hermes/providers/redis\"")
		fmt.Println("  _ \"github.com/agilira/hermes/providers/http\"")
		return nil
	}

	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Scheme() < providers[j].Scheme()
	})

	fmt.Println("Registered providers:")
	for _, provider := range providers {
		fmt.Printf("  %-10s %s\n", provider.Scheme()+"://", provider.Name())
	}
	return nil
}

// handleHealth checks whether the remote backend behind a URL is reachable.
func (m *Manager) handleHealth(ctx *orpheus.Context) error {
	configURL := ctx.GetArg(0)
	if configURL == "" {
		return errors.New(hermes.ErrCodeInvalidURL, "missing configuration URL argument")
	}

	timeout, err := flagDuration(ctx, "timeout")
	if err != nil {
		return err
	}

	checkCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := hermes.HealthCheckProvider(checkCtx, configURL); err != nil {
		fmt.Printf("Unhealthy: %v\n", err)
		return err
	}

	fmt.Printf("Healthy: %s\n", configURL)
	return nil
}

// handleAuditStats prints statistics from the audit database.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	logger, err := openAuditLogger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	stats, err := logger.Stats()
	if err != nil {
		return errors.Wrap(err, hermes.ErrCodeInvalidAudit, "failed to read audit statistics")
	}
	if stats == nil {
		fmt.Println("Audit logging is disabled")
		return nil
	}

	fmt.Printf("Total events:   %d\n", stats.TotalEvents)
	fmt.Printf("Database size:  %d bytes\n", stats.DatabaseSize)
	if stats.SchemaVersion > 0 {
		fmt.Printf("Schema version: %d\n", stats.SchemaVersion)
	}
	if stats.OldestEvent != nil {
		fmt.Printf("Oldest event:   %s\n", stats.OldestEvent.Format(time.RFC3339))
	}
	if stats.NewestEvent != nil {
		fmt.Printf("Newest event:   %s\n", stats.NewestEvent.Format(time.RFC3339))
	}

	if len(stats.EventsByLevel) > 0 {
		fmt.Println("Events by level:")
		for _, level := range sortedKeys(stats.EventsByLevel) {
			fmt.Printf("  %-10s %d\n", level, stats.EventsByLevel[level])
		}
	}
	if len(stats.EventsByComponent) > 0 {
		fmt.Println("Events by component:")
		for _, component := range sortedKeys(stats.EventsByComponent) {
			fmt.Printf("  %-10s %d\n", component, stats.EventsByComponent[component])
		}
	}
	return nil
}

// handleAuditMaintain flushes and runs retention maintenance on the audit
// database.
func (m *Manager) handleAuditMaintain(ctx *orpheus.Context) error {
	logger, err := openAuditLogger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if err := logger.Maintain(); err != nil {
		return errors.Wrap(err, hermes.ErrCodeInvalidAudit, "audit maintenance failed")
	}

	fmt.Println("Audit maintenance complete")
	return nil
}

// handleInfo displays system information and diagnostics.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	verbose := ctx.GetFlagBool("verbose")

	fmt.Printf("Hermes Remote Configuration\n")
	fmt.Printf("Version: 1.0.0\n")
	fmt.Printf("Framework: Orpheus (ultra-fast CLI)\n")
	fmt.Printf("Default refresh interval: %v\n", hermes.DefaultDownloadInterval)
	fmt.Printf("Default ordinal: %d\n", hermes.DefaultOrdinal)

	if verbose {
		fmt.Printf("\nSystem Details:\n")
		fmt.Printf("Supported formats: JSON, YAML\n")
		fmt.Printf("Audit logging: %v\n", m.auditLogger != nil)

		providers := hermes.ListProviders()
		sort.Slice(providers, func(i, j int) bool {
			return providers[i].Scheme() < providers[j].Scheme()
		})
		fmt.Printf("Registered providers: %d\n", len(providers))
		for _, provider := range providers {
			fmt.Printf("  %s\n", provider.Name())
		}
	}

	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)

	const commands = "fetch get keys validate watch providers health audit info completion"

	switch shell {
	case "bash":
		fmt.Printf("# Bash completion for hermes\n")
		fmt.Printf("# Add to ~/.bashrc: source <(hermes completion bash)\n")
		fmt.Printf("_hermes_completion() {\n")
		fmt.Printf("  COMPREPLY=($(compgen -W '%s' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n", commands)
		fmt.Printf("}\n")
		fmt.Printf("complete -F _hermes_completion hermes\n")
	case "zsh":
		fmt.Printf("# Zsh completion for hermes\n")
		fmt.Printf("# Add to ~/.zshrc: source <(hermes completion zsh)\n")
		fmt.Printf("#compdef hermes\n")
		fmt.Printf("_hermes() {\n")
		fmt.Printf("  _arguments '1: :(%s)'\n", commands)
		fmt.Printf("}\n")
	case "fish":
		fmt.Printf("# Fish completion for hermes\n")
		fmt.Printf("complete -c hermes -f -a '%s'\n", commands)
	default:
		return errors.New(hermes.ErrCodeInvalidSettings, fmt.Sprintf("unsupported shell: %s", shell))
	}

	return nil
}
