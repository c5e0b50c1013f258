// settings.go: Settings descriptor for Hermes remote configuration sources
//
// The descriptor tells a Source where the remote document lives and how to
// keep it fresh. It is read once at construction and never mutated after.
// Values come from a YAML descriptor file, HERMES_* environment variables,
// or both (environment wins).
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"bytes"
	"os"
	"strconv"
	"time"

	"github.com/agilira/go-errors"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
)

// Defaults applied by WithDefaults.
const (
	// DefaultDownloadInterval is how often the refresher re-fetches the
	// remote document when download_periodically is enabled.
	DefaultDownloadInterval = 10 * time.Minute

	// DefaultFetchTimeout bounds a single remote fetch, including the
	// synchronous one at construction.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultOrdinal is the priority handed to the surrounding
	// configuration system. Environment-specific sources discovered next
	// to a base descriptor get DefaultOrdinal+1 so they win.
	DefaultOrdinal = 920
)

// Settings configures one remote configuration source.
type Settings struct {
	// URL is the remote coordinates of the document. The scheme selects
	// the provider: consul://, redis://, http://, https://.
	URL string

	// Application is the logical application name; it becomes part of the
	// source name and the audit trail.
	Application string

	// Environment is the deployment environment this descriptor targets
	// (production, staging, ...). Set by discovery for environment-specific
	// descriptors.
	Environment string

	// Profile selects a configuration profile within the remote backend
	// for providers that support it. Default: "default".
	Profile string

	// ClientID identifies this consumer to the remote backend. Generated
	// when empty so providers that need a caller identity always have one.
	ClientID string

	// DownloadPeriodically enables the background refresher.
	DownloadPeriodically bool

	// DownloadInterval is the refresh period. Default: 10 minutes.
	DownloadInterval time.Duration

	// FetchTimeout bounds each remote fetch. Default: 30 seconds.
	FetchTimeout time.Duration

	// Ordinal is the source priority; higher wins. Default: 920.
	Ordinal int

	// SourceName overrides the generated source name.
	SourceName string

	// Audit configures the audit trail. Zero value means secure defaults.
	Audit AuditConfig

	// ErrorHandler receives background refresh errors. Nil means they are
	// logged to the standard logger.
	ErrorHandler ErrorHandler
}

// WithDefaults returns a copy of the settings with unset values filled in.
func (s *Settings) WithDefaults() *Settings {
	settings := *s

	if settings.DownloadInterval <= 0 {
		settings.DownloadInterval = DefaultDownloadInterval
	}
	if settings.FetchTimeout <= 0 {
		settings.FetchTimeout = DefaultFetchTimeout
	}
	if settings.Ordinal <= 0 {
		settings.Ordinal = DefaultOrdinal
	}
	if settings.Profile == "" {
		settings.Profile = "default"
	}
	if settings.ClientID == "" {
		settings.ClientID = uuid.NewString()
	}
	if settings.Audit == (AuditConfig{}) {
		settings.Audit = DefaultAuditConfig()
	}

	return &settings
}

// Validate checks that the settings describe a usable source. Call after
// WithDefaults.
func (s *Settings) Validate() error {
	if s.URL == "" {
		return errors.New(ErrCodeInvalidSettings, "settings must include a remote url")
	}
	if s.DownloadInterval <= 0 {
		return errors.New(ErrCodeInvalidSettings, "download interval must be positive").
			WithContext("download_interval", s.DownloadInterval.String())
	}
	if s.FetchTimeout <= 0 {
		return errors.New(ErrCodeInvalidSettings, "fetch timeout must be positive").
			WithContext("fetch_timeout", s.FetchTimeout.String())
	}
	return nil
}

// sourceName derives the immutable name reported by Source.Name.
func (s *Settings) sourceName() string {
	if s.SourceName != "" {
		return s.SourceName
	}
	name := "hermes"
	if s.Application != "" {
		name += ":" + s.Application
	}
	if s.Environment != "" {
		name += ":" + s.Environment
	}
	return name
}

// settingsFile is the YAML shape of a descriptor file. Durations are Go
// duration strings ("10m", "30s").
type settingsFile struct {
	URL                  string `yaml:"url"`
	Application          string `yaml:"application"`
	Environment          string `yaml:"environment"`
	Profile              string `yaml:"profile"`
	ClientID             string `yaml:"client_id"`
	DownloadPeriodically bool   `yaml:"download_periodically"`
	DownloadInterval     string `yaml:"download_interval"`
	FetchTimeout         string `yaml:"fetch_timeout"`
	Ordinal              int    `yaml:"ordinal"`
	SourceName           string `yaml:"source_name"`
}

// LoadSettings reads a YAML descriptor file and applies HERMES_* environment
// overrides on top. Defaults are not applied here; New does that. A file
// that exists but is empty is rejected, matching the construction contract
// that a broken descriptor is a deployment error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- descriptor path is operator-provided intentionally
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, ErrCodeSettingsNotFound, "settings descriptor not found").
				WithContext("path", path)
		}
		return nil, errors.Wrap(err, ErrCodeSettingsNotFound, "failed to read settings descriptor").
			WithContext("path", path)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(ErrCodeInvalidSettings, "settings descriptor is empty").
			WithContext("path", path)
	}

	var file settingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidSettings, "failed to parse settings descriptor").
			WithContext("path", path)
	}

	settings := &Settings{
		URL:                  file.URL,
		Application:          file.Application,
		Environment:          file.Environment,
		Profile:              file.Profile,
		ClientID:             file.ClientID,
		DownloadPeriodically: file.DownloadPeriodically,
		Ordinal:              file.Ordinal,
		SourceName:           file.SourceName,
	}

	if file.DownloadInterval != "" {
		interval, err := time.ParseDuration(file.DownloadInterval)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidSettings, "invalid download_interval").
				WithContext("download_interval", file.DownloadInterval)
		}
		settings.DownloadInterval = interval
	}
	if file.FetchTimeout != "" {
		timeout, err := time.ParseDuration(file.FetchTimeout)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidSettings, "invalid fetch_timeout").
				WithContext("fetch_timeout", file.FetchTimeout)
		}
		settings.FetchTimeout = timeout
	}

	if err := applyEnvOverrides(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// LoadSettingsFromEnv builds settings purely from HERMES_* environment
// variables for container deployments that ship no descriptor file.
// HERMES_URL is required.
func LoadSettingsFromEnv() (*Settings, error) {
	settings := &Settings{}
	if err := applyEnvOverrides(settings); err != nil {
		return nil, err
	}
	if settings.URL == "" {
		return nil, errors.New(ErrCodeSettingsNotFound, "HERMES_URL is not set")
	}
	return settings, nil
}

// applyEnvOverrides overlays HERMES_* environment variables onto settings.
// Environment always wins over the descriptor file.
func applyEnvOverrides(settings *Settings) error {
	if url := os.Getenv("HERMES_URL"); url != "" {
		settings.URL = url
	}
	if app := os.Getenv("HERMES_APPLICATION"); app != "" {
		settings.Application = app
	}
	if env := os.Getenv("HERMES_ENVIRONMENT"); env != "" {
		settings.Environment = env
	}
	if profile := os.Getenv("HERMES_PROFILE"); profile != "" {
		settings.Profile = profile
	}
	if clientID := os.Getenv("HERMES_CLIENT_ID"); clientID != "" {
		settings.ClientID = clientID
	}
	if name := os.Getenv("HERMES_SOURCE_NAME"); name != "" {
		settings.SourceName = name
	}

	if periodicStr := os.Getenv("HERMES_DOWNLOAD_PERIODICALLY"); periodicStr != "" {
		periodic, err := strconv.ParseBool(periodicStr)
		if err != nil {
			return errors.New(ErrCodeInvalidSettings, "invalid HERMES_DOWNLOAD_PERIODICALLY format")
		}
		settings.DownloadPeriodically = periodic
	}

	if intervalStr := os.Getenv("HERMES_DOWNLOAD_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return errors.New(ErrCodeInvalidSettings, "invalid HERMES_DOWNLOAD_INTERVAL format")
		}
		settings.DownloadInterval = interval
	}

	if timeoutStr := os.Getenv("HERMES_FETCH_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return errors.New(ErrCodeInvalidSettings, "invalid HERMES_FETCH_TIMEOUT format")
		}
		settings.FetchTimeout = timeout
	}

	if ordinalStr := os.Getenv("HERMES_ORDINAL"); ordinalStr != "" {
		ordinal, err := strconv.Atoi(ordinalStr)
		if err != nil {
			return errors.New(ErrCodeInvalidSettings, "invalid HERMES_ORDINAL format")
		}
		settings.Ordinal = ordinal
	}

	return applyAuditEnvOverrides(settings)
}

// applyAuditEnvOverrides overlays audit-related environment variables.
func applyAuditEnvOverrides(settings *Settings) error {
	if enabledStr := os.Getenv("HERMES_AUDIT_ENABLED"); enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return errors.New(ErrCodeInvalidSettings, "invalid HERMES_AUDIT_ENABLED format")
		}
		if settings.Audit == (AuditConfig{}) {
			settings.Audit = DefaultAuditConfig()
		}
		settings.Audit.Enabled = enabled
	}

	if outputFile := os.Getenv("HERMES_AUDIT_OUTPUT_FILE"); outputFile != "" {
		if settings.Audit == (AuditConfig{}) {
			settings.Audit = DefaultAuditConfig()
		}
		settings.Audit.OutputFile = outputFile
	}

	if flushStr := os.Getenv("HERMES_AUDIT_FLUSH_INTERVAL"); flushStr != "" {
		flush, err := time.ParseDuration(flushStr)
		if err != nil {
			return errors.New(ErrCodeInvalidSettings, "invalid HERMES_AUDIT_FLUSH_INTERVAL format")
		}
		if settings.Audit == (AuditConfig{}) {
			settings.Audit = DefaultAuditConfig()
		}
		settings.Audit.FlushInterval = flush
	}

	return nil
}
