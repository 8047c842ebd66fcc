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

import "fmt"

// VectorStoreConfig configures the Chroma-compatible vector database client.
type VectorStoreConfig struct {
	// Host is the Chroma server hostname.
	Host string `yaml:"host,omitempty"`

	// Port is the Chroma server port.
	Port int `yaml:"port,omitempty"`

	// SSL enables HTTPS when talking to Chroma.
	SSL bool `yaml:"ssl,omitempty"`

	// APIKey authenticates against a Chroma Cloud / hosted tenant.
	APIKey string `yaml:"api_key,omitempty"`

	// Tenant and Database select a Chroma v2 tenant/database pair.
	Tenant   string `yaml:"tenant,omitempty"`
	Database string `yaml:"database,omitempty"`

	// Collection is the default collection name used when a request does
	// not name one explicitly.
	Collection string `yaml:"collection,omitempty"`

	// RequestTimeout bounds each HTTP call to Chroma.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds,omitempty"`
}

// SetDefaults applies default values to VectorStoreConfig.
func (c *VectorStoreConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Tenant == "" {
		c.Tenant = "default_tenant"
	}
	if c.Database == "" {
		c.Database = "default_database"
	}
	if c.Collection == "" {
		c.Collection = "book_pages"
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
}

// Validate checks the VectorStoreConfig for errors.
func (c *VectorStoreConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	return nil
}

// BaseURL returns the scheme://host:port prefix for Chroma HTTP requests.
func (c *VectorStoreConfig) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}
