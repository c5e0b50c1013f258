// flags.go: Command-line settings layer for Hermes
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// This file combines FlashFlags ultra-fast command-line parsing with the
// Hermes settings model, so daemons and tools can assemble a Source from
// flags, HERMES_* environment variables and defaults in one fluent chain.

package hermes

import (
	"fmt"
	"os"

	flashflags "github.com/agilira/flash-flags"
)

// SettingsFlags builds Settings from command-line flags.
//
// Precedence follows FlashFlags conventions: explicit command-line values
// win over HERMES_* environment variables, which win over the registered
// defaults. The flag schema mirrors the Settings struct; flag names use
// dashes ("download-interval") and map to HERMES_DOWNLOAD_INTERVAL in the
// environment.
type SettingsFlags struct {
	flags   *flashflags.FlagSet
	appName string
}

// NewSettingsFlags creates a flag set pre-registered with the Hermes
// settings schema.
func NewSettingsFlags(appName string) *SettingsFlags {
	sf := &SettingsFlags{
		flags:   flashflags.New(appName),
		appName: appName,
	}

	sf.flags.SetEnvPrefix("HERMES")

	sf.flags.String("url", "", "Remote configuration URL (scheme selects the provider)")
	sf.flags.String("application", "", "Application name, used to derive the source name")
	sf.flags.String("environment", "", "Deployment environment (dev, staging, prod)")
	sf.flags.String("profile", "", "Configuration profile")
	sf.flags.String("source-name", "", "Explicit source name override")
	sf.flags.Bool("download-periodically", true, "Refresh the configuration in the background")
	sf.flags.Duration("download-interval", DefaultDownloadInterval, "Interval between refresh cycles")
	sf.flags.Duration("fetch-timeout", DefaultFetchTimeout, "Timeout for a single fetch")
	sf.flags.Int("ordinal", DefaultOrdinal, "Source ordinal for precedence ordering")
	sf.flags.Bool("audit-enabled", true, "Enable the audit trail")
	sf.flags.String("audit-output", "", "Audit output file (.jsonl for JSONL, .db for SQLite)")

	return sf
}

// SetDescription sets the application description for help text
func (sf *SettingsFlags) SetDescription(description string) *SettingsFlags {
	sf.flags.SetDescription(description)
	return sf
}

// SetVersion sets the application version for help text
func (sf *SettingsFlags) SetVersion(version string) *SettingsFlags {
	sf.flags.SetVersion(version)
	return sf
}

// Parse parses command-line arguments and binds them to the settings schema
func (sf *SettingsFlags) Parse(args []string) error {
	// Check for help flags first to prevent double output
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return fmt.Errorf("help requested")
		}
	}

	if err := sf.flags.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command-line flags: %w", err)
	}

	return nil
}

// ParseArgs is a convenience method that parses os.Args[1:]
func (sf *SettingsFlags) ParseArgs() error {
	return sf.Parse(os.Args[1:])
}

// ParseArgsOrExit parses command-line arguments and exits gracefully on help/error
func (sf *SettingsFlags) ParseArgsOrExit() {
	if err := sf.ParseArgs(); err != nil {
		if err.Error() == "help requested" {
			sf.PrintUsage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		sf.PrintUsage()
		os.Exit(1)
	}
}

// Settings assembles a validated Settings value from the parsed flags.
func (sf *SettingsFlags) Settings() (Settings, error) {
	settings := Settings{
		URL:                  sf.flags.GetString("url"),
		Application:          sf.flags.GetString("application"),
		Environment:          sf.flags.GetString("environment"),
		Profile:              sf.flags.GetString("profile"),
		SourceName:           sf.flags.GetString("source-name"),
		DownloadPeriodically: sf.flags.GetBool("download-periodically"),
		DownloadInterval:     sf.flags.GetDuration("download-interval"),
		FetchTimeout:         sf.flags.GetDuration("fetch-timeout"),
		Ordinal:              sf.flags.GetInt("ordinal"),
	}

	audit := DefaultAuditConfig()
	audit.Enabled = sf.flags.GetBool("audit-enabled")
	audit.OutputFile = sf.flags.GetString("audit-output")
	settings.Audit = audit

	cfg := settings.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}

	return *cfg, nil
}

// NewSource parses args and constructs a Source in one step. The first
// fetch happens synchronously, exactly as with New.
func (sf *SettingsFlags) NewSource(args []string) (*Source, error) {
	if err := sf.Parse(args); err != nil {
		return nil, err
	}

	settings, err := sf.Settings()
	if err != nil {
		return nil, err
	}

	return New(settings)
}

// PrintUsage prints help information for all flags
func (sf *SettingsFlags) PrintUsage() {
	sf.flags.PrintHelp()
}

// BoundFlags returns the registered flag names for introspection and help
// tooling.
func (sf *SettingsFlags) BoundFlags() []string {
	var names []string
	sf.flags.VisitAll(func(flag *flashflags.Flag) {
		names = append(names, flag.Name())
	})
	return names
}
