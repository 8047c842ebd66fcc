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

// LoggerConfig configures logging behavior.
//
// cmd/searchsvc initializes logging with this priority (highest to lowest):
//  1. CLI flags (--log-level, --log-file, --log-format)
//  2. Environment variables (LOG_LEVEL, LOG_FILE, LOG_FORMAT)
//  3. Defaults (info level, simple format, stderr)
//
// The logger section (and APP_LOG_LEVEL, which maps to logger.level) is
// loaded, defaulted and validated with the rest of the config, but the
// logger is set up before the config is loaded and this section is not
// applied to it.
//
// Example:
//
//	logger:
//	  level: info
//	  file: hector.log
//	  format: simple
type LoggerConfig struct {
	// Level specifies the log level (debug, info, warn, error).
	// Default: info
	Level string `yaml:"level,omitempty"`

	// File specifies the log file path.
	// If empty, logs go to stderr.
	// Default: empty (stderr)
	File string `yaml:"file,omitempty"`

	// Format specifies the log format.
	// Values: "simple" (level + message), "verbose" (time + level + message), or custom.
	// Default: simple
	Format string `yaml:"format,omitempty"`
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// SetDefaults applies default values to LoggerConfig. An unrecognized
// level falls back to "info" rather than failing config loading — the
// auth middleware and everything downstream still needs to start.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" || !validLogLevels[c.Level] {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
	// File defaults to empty (stderr) - no need to set
}

// Validate checks the logger configuration. Level/format are normalized
// by SetDefaults, so there is nothing left that can fail here.
func (c *LoggerConfig) Validate() error {
	return nil
}
