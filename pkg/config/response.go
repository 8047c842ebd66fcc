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

// ResponseConfig controls what the search response composes and exposes,
// plus the public approved-queries surface.
type ResponseConfig struct {
	// EnableTotalDocuments includes a collection.count() call in the
	// response (an extra vector-store round trip).
	EnableTotalDocuments *bool `yaml:"enable_total_documents,omitempty"`

	// EnableEstimatedResults and EnablePagination control whether the
	// response carries an estimated-total/"1000+" figure and a
	// has_next_page/has_previous_page block.
	EnableEstimatedResults *bool `yaml:"enable_estimated_results,omitempty"`
	EnablePagination       *bool `yaml:"enable_pagination,omitempty"`

	// MaxEstimatedResults caps the n_results sent to the vector store and
	// the estimated-total figure returned to clients.
	MaxEstimatedResults int `yaml:"max_estimated_results,omitempty"`

	// ShowApprovedQueries gates GET /approved-queries; when false the
	// endpoint returns an empty list rather than 404, per spec.
	ShowApprovedQueries     bool `yaml:"show_approved_queries,omitempty"`
	ApprovedQueriesMinCount int  `yaml:"approved_queries_min_count,omitempty"`
	ApprovedQueriesLimit    int  `yaml:"approved_queries_limit,omitempty"`

	// DefaultUseCache and SearchCacheTTLSeconds configure response
	// caching defaults applied when a request omits use_cache.
	DefaultUseCache       *bool `yaml:"default_use_cache,omitempty"`
	SearchCacheTTLSeconds int   `yaml:"search_cache_ttl_seconds,omitempty"`
}

// SetDefaults applies default values to ResponseConfig.
func (c *ResponseConfig) SetDefaults() {
	if c.EnableTotalDocuments == nil {
		c.EnableTotalDocuments = BoolPtr(true)
	}
	if c.EnableEstimatedResults == nil {
		c.EnableEstimatedResults = BoolPtr(true)
	}
	if c.EnablePagination == nil {
		c.EnablePagination = BoolPtr(true)
	}
	if c.MaxEstimatedResults == 0 {
		c.MaxEstimatedResults = 1000
	}
	if c.ApprovedQueriesMinCount == 0 {
		c.ApprovedQueriesMinCount = 1
	}
	if c.ApprovedQueriesLimit == 0 {
		c.ApprovedQueriesLimit = 50
	}
	if c.DefaultUseCache == nil {
		c.DefaultUseCache = BoolPtr(true)
	}
	if c.SearchCacheTTLSeconds == 0 {
		c.SearchCacheTTLSeconds = 3600
	}
}

// Validate checks the ResponseConfig for errors.
func (c *ResponseConfig) Validate() error {
	if c.MaxEstimatedResults <= 0 {
		return fmt.Errorf("max_estimated_results must be positive")
	}
	if c.SearchCacheTTLSeconds < 0 {
		return fmt.Errorf("search_cache_ttl_seconds must be non-negative")
	}
	return nil
}

// TotalDocumentsEnabled, EstimatedResultsEnabled, and PaginationEnabled
// dereference the corresponding optional flags, defaulting to true.
func (c *ResponseConfig) TotalDocumentsEnabled() bool   { return BoolValue(c.EnableTotalDocuments, true) }
func (c *ResponseConfig) EstimatedResultsEnabled() bool { return BoolValue(c.EnableEstimatedResults, true) }
func (c *ResponseConfig) PaginationEnabled() bool        { return BoolValue(c.EnablePagination, true) }
func (c *ResponseConfig) UseCacheByDefault() bool         { return BoolValue(c.DefaultUseCache, true) }
