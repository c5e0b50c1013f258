// Utility functions for the Hermes CLI
//
// This file provides the shared helpers for one-shot sources, raw document
// fetching, flattening and flag parsing used by the command handlers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/hermes"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// flagDuration parses a duration-valued flag, turning parse failures into
// settings errors so they surface with a stable error code.
func flagDuration(ctx *orpheus.Context, name string) (time.Duration, error) {
	raw := ctx.GetFlagString(name)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New(hermes.ErrCodeInvalidSettings,
			fmt.Sprintf("invalid %s '%s': %v", name, raw, err))
	}
	if d <= 0 {
		return 0, errors.New(hermes.ErrCodeInvalidSettings,
			fmt.Sprintf("%s must be positive", name))
	}
	return d, nil
}

// openOneShotSource builds a non-refreshing Source for a single read.
// Construction performs the synchronous first fetch, so the returned source
// already holds a usable snapshot. The caller must Close it.
func openOneShotSource(ctx *orpheus.Context, configURL string) (*hermes.Source, error) {
	timeout, err := flagDuration(ctx, "timeout")
	if err != nil {
		return nil, err
	}

	return hermes.New(hermes.Settings{
		URL:                  configURL,
		SourceName:           "hermes-cli",
		DownloadPeriodically: false,
		FetchTimeout:         timeout,
		Audit:                hermes.DisabledAuditConfig(),
	})
}

// fetchDocument retrieves the raw remote document without building a Source,
// used by commands that inspect the document itself rather than its keys.
func fetchDocument(configURL string, timeout time.Duration) (*hermes.Document, error) {
	provider, err := hermes.GetProvider(configURL)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return provider.Fetch(fetchCtx, configURL)
}

// flattenDocument runs a raw document through the parse, normalize and
// flatten pipeline and returns the flat key map.
func flattenDocument(doc *hermes.Document) (map[string]string, error) {
	format := hermes.DetectFormat(doc.ContentType, doc.Data)
	parsed, err := hermes.ParseDocument(doc.Data, format)
	if err != nil {
		return nil, err
	}
	return hermes.Flatten(hermes.Normalize(parsed))
}

// openAuditLogger opens the audit trail targeted by the --output flag, or
// the unified audit database when the flag is empty.
func openAuditLogger(ctx *orpheus.Context) (*hermes.AuditLogger, error) {
	config := hermes.DefaultAuditConfig()
	config.OutputFile = ctx.GetFlagString("output")

	logger, err := hermes.NewAuditLogger(config)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeInvalidAudit, "failed to open audit trail")
	}
	return logger, nil
}

// pollInterval picks how often watch checks for a newly published snapshot.
// Snapshot reads are wait-free, so polling well below the refresh interval
// costs nothing; capped at one second for responsiveness.
func pollInterval(refreshInterval time.Duration) time.Duration {
	poll := refreshInterval / 4
	if poll > time.Second {
		poll = time.Second
	}
	if poll < 50*time.Millisecond {
		poll = 50 * time.Millisecond
	}
	return poll
}

// printChanges prints the key-level difference between two snapshots.
func printChanges(before, after map[string]string) {
	keys := make([]string, 0, len(after)+len(before))
	seen := make(map[string]struct{}, len(after)+len(before))
	for key := range after {
		keys = append(keys, key)
		seen[key] = struct{}{}
	}
	for key := range before {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		oldValue, hadOld := before[key]
		newValue, hasNew := after[key]
		switch {
		case !hadOld:
			fmt.Printf("  + %s = %s\n", key, newValue)
		case !hasNew:
			fmt.Printf("  - %s\n", key)
		case oldValue != newValue:
			fmt.Printf("  ~ %s = %s (was %s)\n", key, newValue, oldValue)
		}
	}
}

// sortedKeys returns the keys of a count map in stable order for display.
func sortedKeys(counts map[string]int64) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
