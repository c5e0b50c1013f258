// discovery_test.go: Tests for settings descriptor discovery
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agilira/go-errors"
)

func writeDescriptor(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestResolveSettingsPath_Explicit(t *testing.T) {
	dir := t.TempDir()
	explicit := writeDescriptor(t, dir, "custom.yaml", "url: http://config.example.com/app.yaml\n")

	resolved, err := ResolveSettingsPath(explicit)
	if err != nil {
		t.Fatalf("ResolveSettingsPath failed: %v", err)
	}
	if resolved != explicit {
		t.Errorf("Expected %s, got %s", explicit, resolved)
	}
}

func TestResolveSettingsPath_EnvironmentVariable(t *testing.T) {
	dir := t.TempDir()
	fromEnv := writeDescriptor(t, dir, "env.yaml", "url: http://config.example.com/app.yaml\n")
	t.Setenv("HERMES_SETTINGS", fromEnv)

	resolved, err := ResolveSettingsPath("")
	if err != nil {
		t.Fatalf("ResolveSettingsPath failed: %v", err)
	}
	if resolved != fromEnv {
		t.Errorf("Expected %s, got %s", fromEnv, resolved)
	}
}

func TestResolveSettingsPath_ExplicitBeatsEnvironment(t *testing.T) {
	dir := t.TempDir()
	explicit := writeDescriptor(t, dir, "explicit.yaml", "url: http://config.example.com/a.yaml\n")
	fromEnv := writeDescriptor(t, dir, "env.yaml", "url: http://config.example.com/b.yaml\n")
	t.Setenv("HERMES_SETTINGS", fromEnv)

	resolved, err := ResolveSettingsPath(explicit)
	if err != nil {
		t.Fatalf("ResolveSettingsPath failed: %v", err)
	}
	if resolved != explicit {
		t.Errorf("Expected explicit path to win, got %s", resolved)
	}
}

func TestResolveSettingsPath_WorkingDirectoryFallback(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: http://config.example.com/app.yaml\n")
	t.Chdir(dir)
	t.Setenv("HERMES_SETTINGS", "")

	resolved, err := ResolveSettingsPath("")
	if err != nil {
		t.Fatalf("ResolveSettingsPath failed: %v", err)
	}
	if resolved != DefaultSettingsFile {
		t.Errorf("Expected %s, got %s", DefaultSettingsFile, resolved)
	}
}

func TestResolveSettingsPath_NotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HERMES_SETTINGS", "")

	_, err := ResolveSettingsPath("")
	if err == nil {
		t.Skip("a system-wide /etc/hermes descriptor exists on this machine")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeSettingsNotFound {
		t.Errorf("Expected %s, got %v", ErrCodeSettingsNotFound, err)
	}
}

func TestDiscoverSettings_BaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: consul://localhost:8500/config/app\n")
	t.Setenv("APP_ENV", "")

	discovered, err := DiscoverSettings(dir)
	if err != nil {
		t.Fatalf("DiscoverSettings failed: %v", err)
	}
	if len(discovered) != 1 {
		t.Fatalf("Expected 1 descriptor, got %d", len(discovered))
	}
	if discovered[0].URL != "consul://localhost:8500/config/app" {
		t.Errorf("Unexpected URL: %s", discovered[0].URL)
	}
}

func TestDiscoverSettings_EnvironmentVariant(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: consul://localhost:8500/config/app\n")
	writeDescriptor(t, dir, "hermes-staging.yaml", "url: consul://staging:8500/config/app\n")
	t.Setenv("APP_ENV", "staging")

	discovered, err := DiscoverSettings(dir)
	if err != nil {
		t.Fatalf("DiscoverSettings failed: %v", err)
	}
	if len(discovered) != 2 {
		t.Fatalf("Expected base plus variant, got %d descriptors", len(discovered))
	}

	variant := discovered[1]
	if variant.URL != "consul://staging:8500/config/app" {
		t.Errorf("Unexpected variant URL: %s", variant.URL)
	}
	if variant.Environment != "staging" {
		t.Errorf("Expected variant environment 'staging', got '%s'", variant.Environment)
	}
	if variant.Ordinal != DefaultOrdinal+1 {
		t.Errorf("Expected variant ordinal %d, got %d", DefaultOrdinal+1, variant.Ordinal)
	}
}

func TestDiscoverSettings_VariantInheritsPinnedBaseOrdinal(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: consul://localhost:8500/config/app\nordinal: 930\n")
	writeDescriptor(t, dir, "hermes-production.yaml", "url: consul://prod:8500/config/app\n")
	t.Setenv("APP_ENV", "production")

	discovered, err := DiscoverSettings(dir)
	if err != nil {
		t.Fatalf("DiscoverSettings failed: %v", err)
	}
	if len(discovered) != 2 {
		t.Fatalf("Expected 2 descriptors, got %d", len(discovered))
	}
	if discovered[1].Ordinal != 931 {
		t.Errorf("Expected variant ordinal 931, got %d", discovered[1].Ordinal)
	}
}

func TestDiscoverSettings_VariantKeepsOwnValues(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: consul://localhost:8500/config/app\n")
	writeDescriptor(t, dir, "hermes-staging.yaml",
		"url: consul://staging:8500/config/app\nenvironment: eu-staging\nordinal: 950\n")
	t.Setenv("APP_ENV", "staging")

	discovered, err := DiscoverSettings(dir)
	if err != nil {
		t.Fatalf("DiscoverSettings failed: %v", err)
	}
	if len(discovered) != 2 {
		t.Fatalf("Expected 2 descriptors, got %d", len(discovered))
	}

	variant := discovered[1]
	if variant.Environment != "eu-staging" {
		t.Errorf("Pinned environment overwritten: %s", variant.Environment)
	}
	if variant.Ordinal != 950 {
		t.Errorf("Pinned ordinal overwritten: %d", variant.Ordinal)
	}
}

func TestDiscoverSettings_VariantWithoutBase(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "hermes-staging.yaml", "url: consul://staging:8500/config/app\n")
	t.Setenv("APP_ENV", "staging")

	discovered, err := DiscoverSettings(dir)
	if err != nil {
		t.Fatalf("DiscoverSettings failed: %v", err)
	}
	if len(discovered) != 1 {
		t.Fatalf("Expected only the variant, got %d descriptors", len(discovered))
	}
	if discovered[0].Ordinal != DefaultOrdinal+1 {
		t.Errorf("Expected ordinal %d, got %d", DefaultOrdinal+1, discovered[0].Ordinal)
	}
}

func TestDiscoverSettings_BrokenDescriptorFails(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: [a, b\n")
	t.Setenv("APP_ENV", "")

	_, err := DiscoverSettings(dir)
	if err == nil {
		t.Fatal("Expected a present-but-broken descriptor to fail discovery")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeInvalidSettings {
		t.Errorf("Expected %s, got %v", ErrCodeInvalidSettings, err)
	}
}

func TestDiscoverSettings_EmptyDirectory(t *testing.T) {
	t.Setenv("APP_ENV", "")

	discovered, err := DiscoverSettings(t.TempDir())
	if err != nil {
		t.Fatalf("DiscoverSettings failed: %v", err)
	}
	if len(discovered) != 0 {
		t.Errorf("Expected no descriptors, got %d", len(discovered))
	}
}

func TestDiscoverSources_NoDescriptors(t *testing.T) {
	t.Setenv("APP_ENV", "")

	sources, err := DiscoverSources(t.TempDir())
	if err != nil {
		t.Fatalf("DiscoverSources failed: %v", err)
	}
	if sources != nil {
		t.Errorf("Expected nil sources for an empty directory, got %d", len(sources))
	}
}

func TestDiscoverSources_BuildsSourceFromDescriptor(t *testing.T) {
	provider := &stubProvider{
		scheme: "mockdisc",
		fetch:  serveDoc(yamlDoc("v1", "service: discovery-test\n")),
	}
	if err := RegisterProvider(provider); err != nil {
		t.Fatalf("Failed to register provider: %v", err)
	}

	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: mockdisc://server/config\napplication: discovered\n")
	t.Setenv("APP_ENV", "")
	t.Setenv("HERMES_AUDIT_ENABLED", "false")

	sources, err := DiscoverSources(dir)
	if err != nil {
		t.Fatalf("DiscoverSources failed: %v", err)
	}
	defer func() {
		for _, source := range sources {
			_ = source.Stop()
		}
	}()

	if len(sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(sources))
	}
	if value, _ := sources[0].Get("service"); value != "discovery-test" {
		t.Errorf("Expected service='discovery-test', got '%s'", value)
	}
	if sources[0].Name() != "hermes:discovered" {
		t.Errorf("Unexpected source name: %s", sources[0].Name())
	}
}

func TestDiscoverSources_ConstructionFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, DefaultSettingsFile, "url: warp://server/config\n")
	t.Setenv("APP_ENV", "")
	t.Setenv("HERMES_AUDIT_ENABLED", "false")

	_, err := DiscoverSources(dir)
	if err == nil {
		t.Fatal("Expected construction failure to propagate")
	}
	if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != ErrCodeUnknownProvider {
		t.Errorf("Expected %s, got %v", ErrCodeUnknownProvider, err)
	}
}
