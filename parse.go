// parse.go: Remote document decoding for Hermes
//
// Remote providers hand back raw bytes plus a content type; this file turns
// them into the untyped tree the normalizer consumes. JSON and YAML cover
// what real configuration backends serve; anything else can be plugged in
// through RegisterParser.
//
// Parser Architecture:
// - Built-in decoders: encoding/json and yaml/v3, full spec compliance
// - Plugin parsers: registered decoders are tried first, by format
// - Detection: content type first, payload sniffing as fallback
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// ConfigFormat represents supported remote document formats.
type ConfigFormat int

const (
	FormatJSON ConfigFormat = iota
	FormatYAML
	FormatUnknown
)

// String returns the string representation of the format for logging.
func (cf ConfigFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatYAML:
		return "YAML"
	default:
		return "Unknown"
	}
}

// ConfigParser is the interface for pluggable document parsers. Registered
// parsers are tried before the built-in decoders, so production setups can
// swap in format support Hermes does not ship (TOML, HCL, protobuf, ...).
//
// Registration follows compile-time import wiring:
//
//	import _ "github.com/your-org/hermes-toml"  // RegisterParser in init()
type ConfigParser interface {
	// Parse decodes document bytes into an untyped tree
	Parse(data []byte) (interface{}, error)

	// Supports returns true if this parser handles the given format
	Supports(format ConfigFormat) bool

	// Name returns a human-readable parser name (for debugging)
	Name() string
}

var (
	customParsers []ConfigParser
	parserMutex   sync.RWMutex
)

// RegisterParser registers a custom document parser. Custom parsers take
// precedence over the built-in JSON/YAML decoders for the formats they
// support.
func RegisterParser(parser ConfigParser) {
	parserMutex.Lock()
	defer parserMutex.Unlock()
	customParsers = append(customParsers, parser)
}

// DetectFormat determines the document format from the provider's content
// type, falling back to sniffing the payload. JSON detection keys on the
// first non-space byte; YAML is the default for text content since YAML 1.2
// is a JSON superset and remote config backends overwhelmingly serve one of
// the two.
func DetectFormat(contentType string, data []byte) ConfigFormat {
	if mime := strings.ToLower(strings.TrimSpace(contentType)); mime != "" {
		// Strip parameters such as "; charset=utf-8"
		if idx := strings.IndexByte(mime, ';'); idx >= 0 {
			mime = strings.TrimSpace(mime[:idx])
		}
		switch mime {
		case "application/json", "text/json":
			return FormatJSON
		case "application/x-yaml", "application/yaml", "text/yaml", "text/x-yaml":
			return FormatYAML
		}
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	if len(trimmed) > 0 {
		return FormatYAML
	}
	return FormatUnknown
}

// ParseDocument decodes raw document bytes into an untyped tree ready for
// Normalize. An empty or whitespace-only payload is rejected: a remote
// source that answers with nothing is a configuration error, not an empty
// configuration.
func ParseDocument(data []byte, format ConfigFormat) (interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(ErrCodeEmptyDocument, "remote document is empty")
	}

	// Registered parsers win over the built-in decoders
	parserMutex.RLock()
	for _, parser := range customParsers {
		if parser.Supports(format) {
			parserMutex.RUnlock()
			doc, err := parser.Parse(data)
			if err != nil {
				return nil, errors.Wrap(err, ErrCodeParseError, "custom parser failed").
					WithContext("parser", parser.Name())
			}
			return doc, nil
		}
	}
	parserMutex.RUnlock()

	switch format {
	case FormatJSON:
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, ErrCodeParseError, "failed to parse JSON document")
		}
		return doc, nil
	case FormatYAML:
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, ErrCodeParseError, "failed to parse YAML document")
		}
		return doc, nil
	default:
		return nil, errors.New(ErrCodeParseError, "unsupported document format").
			WithContext("format", format.String())
	}
}
