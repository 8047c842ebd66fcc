// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

// AuthConfig configures bearer-token API authentication.
//
// Authentication is disabled by default. When enabled, every path other
// than the public allowlist requires `Authorization: Bearer <token>`; the
// token is SHA-256-hashed and looked up in persistence, not validated as a
// JWT — there is no issuer/audience/JWKS concept here.
type AuthConfig struct {
	// Enabled controls whether authentication is required.
	Enabled bool `yaml:"enabled,omitempty"`

	// PublicPaths are paths that never require a token, matched by exact
	// prefix. When empty, SetDefaults fills in a fixed set (health, docs,
	// static assets, approved-queries, admin UI); a configured list
	// replaces that set rather than extending it.
	PublicPaths []string `yaml:"public_paths,omitempty"`
}

// SetDefaults applies default values to AuthConfig.
func (c *AuthConfig) SetDefaults() {
	if len(c.PublicPaths) == 0 {
		c.PublicPaths = []string{
			"/", "/health", "/docs", "/redoc", "/openapi.json",
			"/static/", "/approved-queries", "/admin",
		}
	}
}

// Validate checks the AuthConfig for errors.
func (c *AuthConfig) Validate() error {
	return nil
}

// IsEnabled returns true if authentication is configured and enabled.
func (c *AuthConfig) IsEnabled() bool {
	return c != nil && c.Enabled
}
