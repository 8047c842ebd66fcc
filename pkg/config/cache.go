// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"time"
)

// CacheConfig configures the Redis-backed search response cache.
type CacheConfig struct {
	// Enabled controls whether caching is consulted at all. Individual
	// requests may still opt out via use_cache=false.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Host, Port, Password, DB describe the Redis connection. Ignored
	// when Enabled is false; a connection failure at startup degrades to
	// no caching rather than aborting the service.
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// TTL is defaulted and validated but not read by the search
	// orchestrator; single-model responses are cached for
	// ResponseConfig.SearchCacheTTLSeconds.
	TTL time.Duration `yaml:"ttl,omitempty"`

	// KeyPrefix namespaces cache keys, letting multiple deployments share
	// a Redis instance.
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// IsEnabled returns true if caching is configured and enabled.
func (c *CacheConfig) IsEnabled() bool {
	return c != nil && BoolValue(c.Enabled, true)
}

// SetDefaults applies default values to CacheConfig.
func (c *CacheConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.TTL == 0 {
		c.TTL = 1 * time.Hour
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "searchsvc"
	}
}

// Validate checks the CacheConfig for errors.
func (c *CacheConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	return nil
}

// Addr returns the host:port Redis address.
func (c *CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
