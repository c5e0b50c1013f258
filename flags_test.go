// flags_test.go: Tests for the command-line settings layer
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/agilira/go-errors"
)

func TestSettingsFlags_DefaultsApplied(t *testing.T) {
	sf := NewSettingsFlags("hermes-test")
	if err := sf.Parse([]string{"--url", "http://config.example.com/app.yaml"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	settings, err := sf.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}

	if settings.URL != "http://config.example.com/app.yaml" {
		t.Errorf("Unexpected URL: %s", settings.URL)
	}
	if settings.DownloadInterval != DefaultDownloadInterval {
		t.Errorf("Expected default interval, got %v", settings.DownloadInterval)
	}
	if settings.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("Expected default timeout, got %v", settings.FetchTimeout)
	}
	if settings.Ordinal != DefaultOrdinal {
		t.Errorf("Expected default ordinal, got %d", settings.Ordinal)
	}
	if !settings.DownloadPeriodically {
		t.Error("Expected periodic download enabled by default")
	}
	if !settings.Audit.Enabled {
		t.Error("Expected audit enabled by default")
	}
	if settings.Profile != "default" {
		t.Errorf("Expected profile 'default', got '%s'", settings.Profile)
	}
	if settings.ClientID == "" {
		t.Error("Expected a generated client ID")
	}
}

func TestSettingsFlags_ExplicitValues(t *testing.T) {
	auditFile := filepath.Join(t.TempDir(), "audit.jsonl")
	sf := NewSettingsFlags("hermes-test")
	args := []string{
		"--url", "consul://localhost:8500/config/payments",
		"--application", "payments",
		"--environment", "staging",
		"--profile", "canary",
		"--source-name", "payments-config",
		"--download-periodically=false",
		"--download-interval", "5m",
		"--fetch-timeout", "10s",
		"--ordinal", "925",
		"--audit-enabled=false",
		"--audit-output", auditFile,
	}
	if err := sf.Parse(args); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	settings, err := sf.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}

	if settings.URL != "consul://localhost:8500/config/payments" {
		t.Errorf("Unexpected URL: %s", settings.URL)
	}
	if settings.Application != "payments" || settings.Environment != "staging" {
		t.Errorf("Unexpected application/environment: %s/%s", settings.Application, settings.Environment)
	}
	if settings.Profile != "canary" {
		t.Errorf("Unexpected profile: %s", settings.Profile)
	}
	if settings.SourceName != "payments-config" {
		t.Errorf("Unexpected source name: %s", settings.SourceName)
	}
	if settings.DownloadPeriodically {
		t.Error("Expected periodic download disabled")
	}
	if settings.DownloadInterval != 5*time.Minute {
		t.Errorf("Unexpected interval: %v", settings.DownloadInterval)
	}
	if settings.FetchTimeout != 10*time.Second {
		t.Errorf("Unexpected timeout: %v", settings.FetchTimeout)
	}
	if settings.Ordinal != 925 {
		t.Errorf("Unexpected ordinal: %d", settings.Ordinal)
	}
	if settings.Audit.Enabled {
		t.Error("Expected audit disabled")
	}
	if settings.Audit.OutputFile != auditFile {
		t.Errorf("Unexpected audit output: %s", settings.Audit.OutputFile)
	}
}

func TestSettingsFlags_MissingURL(t *testing.T) {
	sf := NewSettingsFlags("hermes-test")
	if err := sf.Parse([]string{}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	_, err := sf.Settings()
	if err == nil {
		t.Fatal("Expected validation failure without a URL")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeInvalidSettings {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidSettings, err)
	}
}

func TestSettingsFlags_HelpRequested(t *testing.T) {
	for _, flag := range []string{"--help", "-h"} {
		sf := NewSettingsFlags("hermes-test")
		err := sf.Parse([]string{flag})
		if err == nil {
			t.Errorf("Expected help error for %s", flag)
			continue
		}
		if err.Error() != "help requested" {
			t.Errorf("Expected 'help requested' for %s, got: %v", flag, err)
		}
	}
}

func TestSettingsFlags_EnvironmentFallback(t *testing.T) {
	t.Setenv("HERMES_URL", "redis://localhost:6379/0/app")

	sf := NewSettingsFlags("hermes-test")
	if err := sf.Parse([]string{}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	settings, err := sf.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if settings.URL != "redis://localhost:6379/0/app" {
		t.Errorf("Expected env URL, got %s", settings.URL)
	}
}

func TestSettingsFlags_FlagBeatsEnvironment(t *testing.T) {
	t.Setenv("HERMES_URL", "redis://localhost:6379/0/app")

	sf := NewSettingsFlags("hermes-test")
	if err := sf.Parse([]string{"--url", "http://config.example.com/app.yaml"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	settings, err := sf.Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if settings.URL != "http://config.example.com/app.yaml" {
		t.Errorf("Expected explicit flag to win, got %s", settings.URL)
	}
}

func TestSettingsFlags_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad_ordinal", []string{"--ordinal", "first"}},
		{"bad_interval", []string{"--download-interval", "soon"}},
		{"unknown_flag", []string{"--nope", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf := NewSettingsFlags("hermes-test")
			if err := sf.Parse(tt.args); err == nil {
				t.Errorf("Expected parse failure for %v", tt.args)
			}
		})
	}
}

func TestSettingsFlags_BoundFlags(t *testing.T) {
	sf := NewSettingsFlags("hermes-test")
	bound := sf.BoundFlags()

	expected := []string{"url", "download-interval", "fetch-timeout", "ordinal", "audit-enabled"}
	for _, name := range expected {
		found := false
		for _, flag := range bound {
			if flag == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected flag '%s' in bound flags %v", name, bound)
		}
	}
}

func TestSettingsFlags_NewSource(t *testing.T) {
	provider := &stubProvider{
		scheme: "mockflags",
		fetch:  serveDoc(yamlDoc("v1", "feature:\n  rollout: 25\n")),
	}
	if err := RegisterProvider(provider); err != nil {
		t.Fatalf("Failed to register provider: %v", err)
	}

	sf := NewSettingsFlags("hermes-test")
	source, err := sf.NewSource([]string{
		"--url", "mockflags://server/config",
		"--download-periodically=false",
		"--audit-enabled=false",
	})
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer func() { _ = source.Close() }()

	if value, _ := source.Get("feature.rollout"); value != "25" {
		t.Errorf("Expected feature.rollout='25', got '%s'", value)
	}
}

func TestSettingsFlags_FluentConfiguration(t *testing.T) {
	sf := NewSettingsFlags("hermes-test").
		SetDescription("Remote configuration fetcher").
		SetVersion("1.0.0")
	if sf == nil {
		t.Fatal("Fluent chain returned nil")
	}
	if err := sf.Parse([]string{"--url", "http://config.example.com/app.yaml"}); err != nil {
		t.Fatalf("Parse failed after fluent configuration: %v", err)
	}
}
