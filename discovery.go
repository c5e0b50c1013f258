// discovery.go: Settings descriptor discovery
//
// Mirrors how deployments actually ship descriptors: a base hermes.yaml
// plus an optional environment-specific hermes-<env>.yaml next to it, where
// <env> comes from APP_ENV. The environment-specific source is built one
// ordinal above the base so it wins during a merge.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// DefaultSettingsFile is the descriptor name looked up by discovery.
const DefaultSettingsFile = "hermes.yaml"

// ResolveSettingsPath locates the settings descriptor. Resolution order:
// the explicit path argument, the HERMES_SETTINGS environment variable, the
// working directory, then /etc/hermes. The first existing file wins.
func ResolveSettingsPath(explicit string) (string, error) {
	candidates := make([]string, 0, 4)
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	if fromEnv := os.Getenv("HERMES_SETTINGS"); fromEnv != "" {
		candidates = append(candidates, fromEnv)
	}
	candidates = append(candidates,
		DefaultSettingsFile,
		filepath.Join("/etc/hermes", DefaultSettingsFile),
	)

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New(ErrCodeSettingsNotFound, "no settings descriptor found").
		WithContext("searched", fmt.Sprintf("%v", candidates))
}

// environmentName returns the deployment environment used for descriptor
// variants, taken from APP_ENV.
func environmentName() string {
	return os.Getenv("APP_ENV")
}

// DiscoverSettings resolves every descriptor present in dir (the working
// directory when empty): the base hermes.yaml and, when APP_ENV is set, the
// hermes-<env>.yaml variant. The variant inherits an ordinal one above the
// base unless its file pins one, so environment-specific values shadow base
// values in an ordinal-merging configuration system.
//
// A descriptor that is absent is skipped; a descriptor that exists but
// cannot be loaded fails discovery, since a present-but-broken descriptor
// is a deployment error.
func DiscoverSettings(dir string) ([]*Settings, error) {
	if dir == "" {
		dir = "."
	}

	var discovered []*Settings

	baseOrdinal := DefaultOrdinal
	basePath := filepath.Join(dir, DefaultSettingsFile)
	if _, err := os.Stat(basePath); err == nil {
		base, err := LoadSettings(basePath)
		if err != nil {
			return nil, err
		}
		if base.Ordinal > 0 {
			baseOrdinal = base.Ordinal
		}
		discovered = append(discovered, base)
	}

	if env := environmentName(); env != "" {
		envPath := filepath.Join(dir, fmt.Sprintf("hermes-%s.yaml", env))
		if _, err := os.Stat(envPath); err == nil {
			envSettings, err := LoadSettings(envPath)
			if err != nil {
				return nil, err
			}
			if envSettings.Environment == "" {
				envSettings.Environment = env
			}
			if envSettings.Ordinal <= 0 {
				envSettings.Ordinal = baseOrdinal + 1
			}
			discovered = append(discovered, envSettings)
		}
	}

	return discovered, nil
}

// DiscoverSources builds a Source per descriptor found in dir. Zero
// descriptors is not an error; it is logged and an empty slice is returned
// so a surrounding configuration system can carry on with its other
// sources. Construction failures for a resolved descriptor propagate.
func DiscoverSources(dir string) ([]*Source, error) {
	settingsList, err := DiscoverSettings(dir)
	if err != nil {
		return nil, err
	}
	if len(settingsList) == 0 {
		log.Printf("Hermes: no settings descriptor resolved, no remote source will be configured")
		return nil, nil
	}

	sources := make([]*Source, 0, len(settingsList))
	for _, settings := range settingsList {
		source, err := New(*settings)
		if err != nil {
			// Tear down sources already built so no refresher leaks
			for _, built := range sources {
				_ = built.Stop()
			}
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, nil
}
