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

// EmbedderConfig configures a single named embedding provider.
//
// Provider is one of "openai", "huggingface", "gemini", or "none". "none"
// produces a provider that always errors on Embed — used for collections
// that were seeded with query_texts-only search and never need local
// embedding (spec's `ErrNoEmbeddingFunction` fallback path exists for
// exactly this configuration).
type EmbedderConfig struct {
	// Provider selects the embedding backend.
	Provider string `yaml:"provider,omitempty"`

	// Model is the provider-specific model name.
	Model string `yaml:"model,omitempty"`

	// APIKey authenticates against the provider (openai, gemini). The
	// config loader sets embedders.default.api_key from OPENAI_API_KEY and
	// embedders.gemini.api_key from GEMINI_API_KEY; other entries get it
	// from the config file only.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider's default endpoint. Required for
	// "huggingface" (a self-hosted inference endpoint); optional override
	// for "openai".
	BaseURL string `yaml:"base_url,omitempty"`

	// Dimension is the embedding vector width. Inferred per-model when
	// left at zero for known models.
	Dimension int `yaml:"dimension,omitempty"`

	// BatchSize caps how many texts are sent to the provider per request.
	BatchSize int `yaml:"batch_size,omitempty"`

	// RequestTimeoutSeconds bounds each HTTP call to the provider.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds,omitempty"`
}

// SetDefaults applies default values to EmbedderConfig.
func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
	if c.Model == "" {
		switch c.Provider {
		case "openai":
			c.Model = "text-embedding-3-small"
		case "gemini":
			c.Model = "text-embedding-004"
		case "huggingface":
			c.Model = "sentence-transformers/all-MiniLM-L6-v2"
		}
	}
}

// Validate checks the EmbedderConfig for errors.
func (c *EmbedderConfig) Validate() error {
	switch c.Provider {
	case "openai", "huggingface", "gemini", "none":
	default:
		return fmt.Errorf("invalid provider %q (valid: openai, huggingface, gemini, none)", c.Provider)
	}
	if c.Provider == "huggingface" && c.BaseURL == "" {
		return fmt.Errorf("huggingface provider requires base_url")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative")
	}
	return nil
}
