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

package store

import (
	"testing"

	"github.com/chromasearch/searchsvc/pkg/config"
)

// OpenForTest builds an in-memory sqlite-backed Store, for use by this
// package's own tests and by other packages' tests (ratelimit, auth)
// that need a real persistence layer without a running database.
func OpenForTest(t *testing.T) *Store {
	t.Helper()
	pool := config.NewDBPool()
	t.Cleanup(func() { _ = pool.Close() })

	cfg := &config.DatabaseConfig{Driver: "sqlite", Database: ":memory:"}
	cfg.SetDefaults()

	s, err := Open(pool, cfg)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return s
}
