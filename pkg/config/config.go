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

// Package config provides configuration loading and management for the
// search service.
//
// Config loads in layers: hardcoded defaults, an optional YAML file, then
// environment variables, the last layer always winning. Each section
// carries its own SetDefaults/Validate pair so the top-level Config can
// delegate rather than duplicate validation logic.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure for the search service.
type Config struct {
	// Server configures the HTTP listener and CORS.
	Server ServerConfig `yaml:"server,omitempty"`

	// VectorStore configures the Chroma-compatible vector database.
	VectorStore VectorStoreConfig `yaml:"vector_store,omitempty"`

	// Embedders defines the named embedding providers available to the
	// search service. The key "default" is used when a collection or
	// request does not name a model explicitly.
	Embedders map[string]*EmbedderConfig `yaml:"embedders,omitempty"`

	// Database configures the SQL persistence layer (search history,
	// export jobs, embedding models, API tokens, votes).
	Database DatabaseConfig `yaml:"database,omitempty"`

	// Cache configures the Redis-backed response cache.
	Cache CacheConfig `yaml:"cache,omitempty"`

	// RateLimiting configures per-token daily request limits.
	RateLimiting RateLimitConfig `yaml:"rate_limiting,omitempty"`

	// Auth configures bearer-token API authentication.
	Auth AuthConfig `yaml:"auth,omitempty"`

	// Response configures what metadata the search response exposes.
	Response ResponseConfig `yaml:"response,omitempty"`

	// Logger configures logging behavior.
	Logger *LoggerConfig `yaml:"logger,omitempty"`
}

// SetDefaults applies default values to the config and all its sections.
func (c *Config) SetDefaults() {
	if c.Embedders == nil {
		c.Embedders = make(map[string]*EmbedderConfig)
	}
	if len(c.Embedders) == 0 {
		c.Embedders["default"] = &EmbedderConfig{}
	}
	for name, e := range c.Embedders {
		if e == nil {
			e = &EmbedderConfig{}
			c.Embedders[name] = e
		}
		e.SetDefaults()
	}

	c.Server.SetDefaults()
	c.VectorStore.SetDefaults()
	c.Database.SetDefaults()
	c.Cache.SetDefaults()
	c.RateLimiting.SetDefaults()
	c.Auth.SetDefaults()
	c.Response.SetDefaults()

	if c.Logger == nil {
		c.Logger = &LoggerConfig{}
	}
	c.Logger.SetDefaults()
}

// Validate checks the configuration for errors, collecting every problem
// found rather than stopping at the first one.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server: %v", err))
	}
	if err := c.VectorStore.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("vector_store: %v", err))
	}
	for name, e := range c.Embedders {
		if e == nil {
			continue
		}
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("embedders[%s]: %v", name, err))
		}
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database: %v", err))
	}
	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("cache: %v", err))
	}
	if err := c.RateLimiting.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate_limiting: %v", err))
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("auth: %v", err))
	}
	if err := c.Response.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("response: %v", err))
	}
	if c.Logger != nil {
		if err := c.Logger.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("logger: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// GetEmbedder returns the named embedder config; an empty name selects
// "default".
func (c *Config) GetEmbedder(name string) (*EmbedderConfig, bool) {
	if name == "" {
		name = "default"
	}
	e, ok := c.Embedders[name]
	return e, ok
}
