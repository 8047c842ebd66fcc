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
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envKeyMap translates the flat APP_*/CHROMA_*/... environment variable
// names from spec.md §6 into koanf's dotted config paths.
var envKeyMap = map[string]string{
	"APP_HOST":                        "server.host",
	"APP_PORT":                        "server.port",
	"APP_LOG_LEVEL":                   "logger.level",
	"CHROMA_HOST":                     "vector_store.host",
	"CHROMA_PORT":                     "vector_store.port",
	"CHROMA_SSL":                      "vector_store.ssl",
	"CHROMA_API_KEY":                  "vector_store.api_key",
	"CHROMA_COLLECTION":               "vector_store.collection",
	"EMBEDDING_PROVIDER":              "embedders.default.provider",
	"EMBEDDING_MODEL":                 "embedders.default.model",
	"OPENAI_API_KEY":                  "embedders.default.api_key",
	"GEMINI_API_KEY":                  "embedders.gemini.api_key",
	"REDIS_HOST":                      "cache.host",
	"REDIS_PORT":                      "cache.port",
	"REDIS_DB":                        "cache.db",
	"REDIS_PASSWORD":                  "cache.password",
	"ENABLE_TOTAL_DOCUMENTS":          "response.enable_total_documents",
	"ENABLE_ESTIMATED_RESULTS":        "response.enable_estimated_results",
	"ENABLE_PAGINATION":               "response.enable_pagination",
	"MAX_ESTIMATED_RESULTS":           "response.max_estimated_results",
	"SHOW_APPROVED_QUERIES":           "response.show_approved_queries",
	"APPROVED_QUERIES_MIN_COUNT":      "response.approved_queries_min_count",
	"APPROVED_QUERIES_LIMIT":          "response.approved_queries_limit",
	"ENABLE_API_AUTH":                 "auth.enabled",
	"DEFAULT_RATE_LIMIT_PER_DAY":      "rate_limiting.default_per_day",
	"DEFAULT_USE_CACHE":               "response.default_use_cache",
	"SEARCH_CACHE_TTL":                "response.search_cache_ttl_seconds",
}

// Loader loads configuration from layered sources: defaults, an optional
// YAML file, and environment variables (highest priority).
type Loader struct {
	k *koanf.Koanf
}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// Load reads defaults, merges an optional YAML file at path (ignored if
// path is empty or the file does not exist), merges environment
// variables, then decodes, defaults, and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	defaults := map[string]interface{}{
		"server.host": "0.0.0.0",
		"server.port": 8080,
	}
	if err := l.k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := l.k.Load(env.ProviderWithValue("", ".", mapEnvVar), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := l.k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mapEnvVar translates a recognized environment variable into its koanf
// path and a parsed value. Unknown variables are dropped — the spec
// requires unrecognized options to be ignored, not rejected.
func mapEnvVar(key, value string) (string, interface{}) {
	path, ok := envKeyMap[key]
	if !ok {
		return "", nil
	}
	return path, parseEnvValue(value)
}

// parseEnvValue coerces a raw environment string into bool/int/string so
// that koanf's mapstructure decode step lands on the right Go type.
func parseEnvValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}
