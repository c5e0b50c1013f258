// Package consul provides a Consul KV remote configuration provider for Hermes
//
// STANDARD NAMING: hermes_provider_consul.go
// COMMUNITY PATTERN: All Hermes providers should follow this naming convention
//
// USAGE:
//   import _ "github.com/agilira/hermes/providers/consul"  // Auto-registers Consul provider
//
//   source, err := hermes.New(hermes.Settings{
//       URL: "consul://127.0.0.1:8500/config/myapp",
//   })
//
// URL FORMAT:
//   consul://host:port/path/to/key[?dc=datacenter&token=acl-token]
//
//   Examples:
//   - consul://localhost:8500/config/myapp
//   - consul://consul.service.consul:8500/config/myapp/production?dc=eu-west-1
//
//   When the token query parameter is omitted the client falls back to the
//   standard CONSUL_HTTP_TOKEN environment variable.
//
// VERSION TOKEN:
//   Consul tracks a ModifyIndex per key; the provider reports it as the
//   version token, so the refresher skips republishing until the key is
//   actually written again.
//
// FEATURES:
//   - Consul KV reads with datacenter and ACL token selection
//   - ModifyIndex version tokens for precise change detection
//   - Client pooling per Consul address
//   - Health checks via KV round trips
//   - Production-ready error handling
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package consul

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/hermes"
	"github.com/hashicorp/consul/api"
)

// ConsulKV defines the interface for Consul key-value operations.
// This interface enables testing by allowing mock implementations.
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// consulTarget is a parsed Consul configuration URL.
type consulTarget struct {
	addr       string
	key        string
	datacenter string
	token      string
}

// ConsulProvider implements hermes.Provider backed by the official Consul
// API client. Clients are pooled per Consul address.
type ConsulProvider struct {
	mu      sync.Mutex
	clients map[string]ConsulKV
	testKV  ConsulKV
}

// Name returns the human-readable provider name
func (c *ConsulProvider) Name() string {
	return "Consul KV Remote Configuration Provider v1.0"
}

// Scheme returns the URL scheme this provider handles
func (c *ConsulProvider) Scheme() string {
	return "consul"
}

// Validate checks if the configuration URL is valid for Consul
func (c *ConsulProvider) Validate(configURL string) error {
	_, err := c.parseConsulURL(configURL)
	return err
}

// Fetch retrieves the configuration document stored at the Consul key.
//
// The version token is the key's ModifyIndex; the content type is left
// empty so the format is sniffed from the payload.
func (c *ConsulProvider) Fetch(ctx context.Context, configURL string) (*hermes.Document, error) {
	target, err := c.parseConsulURL(configURL)
	if err != nil {
		return nil, err
	}

	kv, err := c.kv(target)
	if err != nil {
		return nil, err
	}

	opts := (&api.QueryOptions{Datacenter: target.datacenter}).WithContext(ctx)
	pair, _, err := kv.Get(target.key, opts)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeFetchFailed,
			"failed to get Consul key")
	}

	if pair == nil {
		return nil, errors.New(hermes.ErrCodeConfigNotFound,
			fmt.Sprintf("Consul key '%s' not found", target.key))
	}

	return &hermes.Document{
		Version:   strconv.FormatUint(pair.ModifyIndex, 10),
		Data:      pair.Value,
		FetchedAt: timecache.CachedTime(),
	}, nil
}

// HealthCheck verifies Consul connectivity.
//
// A KV round trip is used rather than the status endpoints so the check
// also exercises ACL access to the configured key. A missing key is
// healthy; only transport and permission failures are reported.
func (c *ConsulProvider) HealthCheck(ctx context.Context, configURL string) error {
	target, err := c.parseConsulURL(configURL)
	if err != nil {
		return err
	}

	kv, err := c.kv(target)
	if err != nil {
		return err
	}

	opts := (&api.QueryOptions{Datacenter: target.datacenter}).WithContext(ctx)
	if _, _, err := kv.Get(target.key, opts); err != nil {
		return errors.Wrap(err, hermes.ErrCodeFetchFailed,
			fmt.Sprintf("Consul health check failed: cannot query %s", target.addr))
	}

	return nil
}

// SetKV pins all lookups to the given KV endpoint. This is used by tests
// to inject a mock implementation and should not be called in production.
func (c *ConsulProvider) SetKV(kv ConsulKV) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.testKV = kv
}

// kv returns a pooled KV endpoint for the target address, creating the
// underlying Consul client on first use.
func (c *ConsulProvider) kv(target *consulTarget) (ConsulKV, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.testKV != nil {
		return c.testKV, nil
	}

	if c.clients == nil {
		c.clients = make(map[string]ConsulKV)
	}
	if kv, ok := c.clients[target.addr]; ok {
		return kv, nil
	}

	config := api.DefaultConfig()
	config.Address = target.addr
	if target.token != "" {
		config.Token = target.token
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeFetchFailed,
			"failed to create Consul client")
	}

	kv := client.KV()
	c.clients[target.addr] = kv
	return kv, nil
}

// parseConsulURL parses and validates a Consul URL
//
// Expected format: consul://host:port/path/to/key[?dc=datacenter&token=acl-token]
//
// Examples:
//   - consul://localhost:8500/config/myapp
//   - consul://consul.example.com:8500/config/myapp/production?dc=eu-west-1
func (c *ConsulProvider) parseConsulURL(consulURL string) (*consulTarget, error) {
	u, err := url.Parse(consulURL)
	if err != nil {
		return nil, errors.Wrap(err, hermes.ErrCodeInvalidURL,
			"invalid Consul URL format")
	}

	if u.Scheme != "consul" {
		return nil, errors.New(hermes.ErrCodeInvalidURL,
			"URL scheme must be 'consul'")
	}

	host := u.Host
	if host == "" {
		host = "127.0.0.1:8500" // Default Consul agent address
	}
	if !strings.Contains(host, ":") {
		host += ":8500"
	}

	key := strings.Trim(u.Path, "/")
	if key == "" {
		return nil, errors.New(hermes.ErrCodeInvalidURL,
			"Consul URL must include a key path")
	}

	query := u.Query()

	return &consulTarget{
		addr:       host,
		key:        key,
		datacenter: query.Get("dc"),
		token:      query.Get("token"),
	}, nil
}

// init automatically registers the Consul provider when the package is imported
//
// This follows the Hermes plugin pattern where providers self-register
// via init() functions when their packages are imported.
func init() {
	provider := &ConsulProvider{}
	if err := hermes.RegisterProvider(provider); err != nil {
		_ = err
	}
}
