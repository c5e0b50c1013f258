// handlers_test.go: CLI command handler tests
//
// These run real commands through Manager.Run against httptest-backed
// remote endpoints, asserting on the captured stdout the way a user
// would read it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agilira/go-errors"
	"github.com/agilira/hermes"

	_ "github.com/agilira/hermes/providers/http"
)

const cliFixtureYAML = `server:
  httpPort: 8080
  httpsPort: 8443
logging:
  level: info
`

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything it printed. Command outputs here are far below the pipe
// buffer size, so draining after fn returns cannot block.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	os.Stdout = old
	_ = w.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("Failed to drain pipe: %v", err)
	}
	_ = r.Close()

	return buf.String()
}

// runCLI executes a command through the manager and returns its stdout.
func runCLI(t *testing.T, manager *Manager, args ...string) (string, error) {
	t.Helper()

	var runErr error
	output := captureStdout(t, func() {
		runErr = manager.Run(args)
	})
	return output, runErr
}

// newDocServer serves a fixed document with a stable ETag version token.
func newDocServer(t *testing.T, payload, contentType string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("ETag", `"doc-v1"`)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCLIFetch(t *testing.T) {
	server := newDocServer(t, cliFixtureYAML, "application/x-yaml")
	manager := NewManager()

	t.Run("document_summary", func(t *testing.T) {
		output, err := runCLI(t, manager, "fetch", server.URL+"/app.yaml")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if !strings.Contains(output, `Version:      "doc-v1"`) {
			t.Errorf("Expected version token in summary, got:\n%s", output)
		}
		if !strings.Contains(output, "Format:       YAML") {
			t.Errorf("Expected detected format in summary, got:\n%s", output)
		}
		if !strings.Contains(output, fmt.Sprintf("Size:         %d bytes", len(cliFixtureYAML))) {
			t.Errorf("Expected document size in summary, got:\n%s", output)
		}
	})

	t.Run("raw_body", func(t *testing.T) {
		output, err := runCLI(t, manager, "fetch", server.URL+"/app.yaml", "--raw")
		if err != nil {
			t.Fatalf("fetch --raw failed: %v", err)
		}
		if output != cliFixtureYAML {
			t.Errorf("Expected verbatim document body, got:\n%s", output)
		}
	})

	t.Run("missing_url", func(t *testing.T) {
		if _, err := runCLI(t, manager, "fetch"); err == nil {
			t.Error("Expected error for missing URL argument")
		}
	})

	t.Run("invalid_timeout", func(t *testing.T) {
		_, err := runCLI(t, manager, "fetch", server.URL+"/app.yaml", "--timeout", "fast")
		if err == nil {
			t.Fatal("Expected error for invalid timeout")
		}
		if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != hermes.ErrCodeInvalidSettings {
			t.Errorf("Expected %s, got %v", hermes.ErrCodeInvalidSettings, err)
		}
	})
}

func TestCLIGet(t *testing.T) {
	server := newDocServer(t, cliFixtureYAML, "application/x-yaml")
	manager := NewManager()

	t.Run("existing_key", func(t *testing.T) {
		output, err := runCLI(t, manager, "get", server.URL+"/app.yaml", "server.httpPort")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if strings.TrimSpace(output) != "8080" {
			t.Errorf("Expected '8080', got '%s'", strings.TrimSpace(output))
		}
	})

	t.Run("missing_key", func(t *testing.T) {
		_, err := runCLI(t, manager, "get", server.URL+"/app.yaml", "server.nope")
		if err == nil {
			t.Fatal("Expected error for missing key")
		}
		if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != hermes.ErrCodeConfigNotFound {
			t.Errorf("Expected %s, got %v", hermes.ErrCodeConfigNotFound, err)
		}
	})

	t.Run("missing_key_argument", func(t *testing.T) {
		if _, err := runCLI(t, manager, "get", server.URL+"/app.yaml"); err == nil {
			t.Error("Expected usage error without key argument")
		}
	})
}

func TestCLIKeys(t *testing.T) {
	server := newDocServer(t, cliFixtureYAML, "application/x-yaml")

	// Each subtest gets its own Manager: orpheus commands keep one
	// flash-flags FlagSet for the App's lifetime and Parse never resets
	// previously-set flag values, so a shared Manager would leak --prefix
	// from one subtest into the next.
	t.Run("all_keys", func(t *testing.T) {
		manager := NewManager()
		output, err := runCLI(t, manager, "keys", server.URL+"/app.yaml")
		if err != nil {
			t.Fatalf("keys failed: %v", err)
		}
		for _, key := range []string{"logging.level", "server.httpPort", "server.httpsPort"} {
			if !strings.Contains(output, key) {
				t.Errorf("Expected key %s in listing, got:\n%s", key, output)
			}
		}
		if !strings.Contains(output, `version "doc-v1"`) {
			t.Errorf("Expected version in header, got:\n%s", output)
		}
	})

	t.Run("prefix_filter", func(t *testing.T) {
		manager := NewManager()
		output, err := runCLI(t, manager, "keys", server.URL+"/app.yaml", "--prefix", "logging")
		if err != nil {
			t.Fatalf("keys --prefix failed: %v", err)
		}
		if !strings.Contains(output, "logging.level") {
			t.Errorf("Expected matching key, got:\n%s", output)
		}
		if strings.Contains(output, "server.httpPort") {
			t.Errorf("Filtered key should not appear, got:\n%s", output)
		}
	})

	t.Run("with_values", func(t *testing.T) {
		manager := NewManager()
		output, err := runCLI(t, manager, "keys", server.URL+"/app.yaml", "--values")
		if err != nil {
			t.Fatalf("keys --values failed: %v", err)
		}
		if !strings.Contains(output, "server.httpPort = 8080") {
			t.Errorf("Expected key with value, got:\n%s", output)
		}
	})

	t.Run("no_match", func(t *testing.T) {
		manager := NewManager()
		output, err := runCLI(t, manager, "keys", server.URL+"/app.yaml", "--prefix", "nope")
		if err != nil {
			t.Fatalf("keys failed: %v", err)
		}
		if !strings.Contains(output, "No keys found with prefix 'nope'") {
			t.Errorf("Expected empty result message, got:\n%s", output)
		}
	})
}

func TestCLIValidate(t *testing.T) {
	manager := NewManager()

	t.Run("valid_document", func(t *testing.T) {
		server := newDocServer(t, cliFixtureYAML, "application/x-yaml")

		output, err := runCLI(t, manager, "validate", server.URL+"/app.yaml")
		if err != nil {
			t.Fatalf("validate failed: %v", err)
		}
		if !strings.Contains(output, "Valid YAML document: 3 keys") {
			t.Errorf("Expected validation summary, got:\n%s", output)
		}
	})

	t.Run("malformed_document", func(t *testing.T) {
		server := newDocServer(t, `{"broken":`, "application/json")

		output, err := runCLI(t, manager, "validate", server.URL+"/app.json")
		if err == nil {
			t.Fatal("Expected error for malformed document")
		}
		if !strings.Contains(output, "Invalid JSON document") {
			t.Errorf("Expected defect report, got:\n%s", output)
		}
	})
}

func TestCLIProviders(t *testing.T) {
	manager := NewManager()

	output, err := runCLI(t, manager, "providers")
	if err != nil {
		t.Fatalf("providers failed: %v", err)
	}
	if !strings.Contains(output, "Registered providers:") {
		t.Errorf("Expected provider listing header, got:\n%s", output)
	}
	// The blank import above registers both HTTP schemes
	if !strings.Contains(output, "http://") || !strings.Contains(output, "https://") {
		t.Errorf("Expected http and https providers, got:\n%s", output)
	}
}

func TestCLIHealth(t *testing.T) {
	manager := NewManager()

	t.Run("reachable_endpoint", func(t *testing.T) {
		// 404 still proves the endpoint answers
		server := httptest.NewServer(nethttp.NotFoundHandler())
		defer server.Close()

		output, err := runCLI(t, manager, "health", server.URL+"/app.yaml")
		if err != nil {
			t.Fatalf("health failed: %v", err)
		}
		if !strings.Contains(output, "Healthy:") {
			t.Errorf("Expected healthy report, got:\n%s", output)
		}
	})

	t.Run("missing_url", func(t *testing.T) {
		if _, err := runCLI(t, manager, "health"); err == nil {
			t.Error("Expected error for missing URL argument")
		}
	})
}

func TestCLIAuditTrail(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli-audit.db")

	// Seed the database through the public audit API
	seed, err := hermes.NewAuditLogger(hermes.AuditConfig{
		Enabled:    true,
		OutputFile: dbPath,
		MinLevel:   hermes.AuditInfo,
		BufferSize: 10,
	})
	if err != nil {
		t.Fatalf("Failed to create audit logger: %v", err)
	}
	seed.LogSourceEvent("source_created", "https://config.example.com/app.yaml", nil)
	if err := seed.Close(); err != nil {
		t.Fatalf("Failed to close audit logger: %v", err)
	}

	manager := NewManager()

	t.Run("stats", func(t *testing.T) {
		output, err := runCLI(t, manager, "audit", "stats", "--output", dbPath)
		if err != nil {
			t.Fatalf("audit stats failed: %v", err)
		}
		if !strings.Contains(output, "Total events:") {
			t.Errorf("Expected event total, got:\n%s", output)
		}
		if !strings.Contains(output, "hermes") {
			t.Errorf("Expected component breakdown, got:\n%s", output)
		}
	})

	t.Run("maintain", func(t *testing.T) {
		output, err := runCLI(t, manager, "audit", "maintain", "--output", dbPath)
		if err != nil {
			t.Fatalf("audit maintain failed: %v", err)
		}
		if !strings.Contains(output, "Audit maintenance complete") {
			t.Errorf("Expected maintenance report, got:\n%s", output)
		}
	})
}

func TestCLICompletion(t *testing.T) {
	manager := NewManager()

	tests := []struct {
		shell    string
		expected string
	}{
		{"bash", "complete -F _hermes_completion hermes"},
		{"zsh", "#compdef hermes"},
		{"fish", "complete -c hermes"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			output, err := runCLI(t, manager, "completion", tt.shell)
			if err != nil {
				t.Fatalf("completion %s failed: %v", tt.shell, err)
			}
			if !strings.Contains(output, tt.expected) {
				t.Errorf("Expected %s completion script, got:\n%s", tt.shell, output)
			}
		})
	}

	t.Run("unsupported_shell", func(t *testing.T) {
		_, err := runCLI(t, manager, "completion", "powershell")
		if err == nil {
			t.Fatal("Expected error for unsupported shell")
		}
		if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != hermes.ErrCodeInvalidSettings {
			t.Errorf("Expected %s, got %v", hermes.ErrCodeInvalidSettings, err)
		}
	})
}

func TestCLIInfo(t *testing.T) {
	manager := NewManager()

	t.Run("basic", func(t *testing.T) {
		output, err := runCLI(t, manager, "info")
		if err != nil {
			t.Fatalf("info failed: %v", err)
		}
		if !strings.Contains(output, "Hermes Remote Configuration") {
			t.Errorf("Expected product banner, got:\n%s", output)
		}
	})

	t.Run("verbose", func(t *testing.T) {
		output, err := runCLI(t, manager, "info", "--verbose")
		if err != nil {
			t.Fatalf("info --verbose failed: %v", err)
		}
		if !strings.Contains(output, "Registered providers:") {
			t.Errorf("Expected provider count, got:\n%s", output)
		}
	})
}

// TestCLIWatchValidation covers the watch argument checks that run before
// the refresh loop starts. The loop itself only exits on SIGINT, so the
// long-running path stays out of unit tests.
func TestCLIWatchValidation(t *testing.T) {
	manager := NewManager()

	t.Run("missing_url", func(t *testing.T) {
		if _, err := runCLI(t, manager, "watch"); err == nil {
			t.Error("Expected error for missing URL argument")
		}
	})

	t.Run("invalid_interval", func(t *testing.T) {
		_, err := runCLI(t, manager, "watch", "http://localhost/app.yaml", "--interval", "soon")
		if err == nil {
			t.Fatal("Expected error for invalid interval")
		}
		if errorCoder, ok := err.(errors.ErrorCoder); !ok || string(errorCoder.ErrorCode()) != hermes.ErrCodeInvalidSettings {
			t.Errorf("Expected %s, got %v", hermes.ErrCodeInvalidSettings, err)
		}
	})
}
