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

// RateLimitConfig configures the per-token daily request limit enforced by
// the auth middleware. Counters live in the persistence store, keyed on
// (token_id, UTC date), and reset at the next UTC midnight.
type RateLimitConfig struct {
	// Enabled controls whether the limit is enforced. When auth itself is
	// disabled, rate limiting has no effect regardless of this flag.
	Enabled *bool `yaml:"enabled,omitempty"`

	// DefaultPerDay is the daily request budget assigned to tokens that do
	// not carry their own override.
	DefaultPerDay int64 `yaml:"default_per_day,omitempty"`
}

// IsEnabled returns true if rate limiting is configured and enabled.
func (c *RateLimitConfig) IsEnabled() bool {
	return c != nil && BoolValue(c.Enabled, true)
}

// SetDefaults applies default values to RateLimitConfig.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.DefaultPerDay == 0 {
		c.DefaultPerDay = 1000
	}
}

// Validate checks the RateLimitConfig for errors.
func (c *RateLimitConfig) Validate() error {
	if c.DefaultPerDay < 0 {
		return fmt.Errorf("default_per_day must be non-negative")
	}
	return nil
}
