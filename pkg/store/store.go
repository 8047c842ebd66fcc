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

// Package store is the embedded relational persistence layer: search
// history, export jobs, embedding models, query approvals, search votes,
// and API user/token/usage accounting. It speaks database/sql against
// sqlite, postgres or mysql, reusing the teacher's per-driver DSN/pool
// plumbing in pkg/config.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromasearch/searchsvc/pkg/config"
)

// Store wraps a *sql.DB with the dialect-specific placeholder rewriting
// every query below needs, the same dialect switch task_service_sql.go
// performs inline per-query in the teacher.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open creates a Store from a DatabaseConfig, using the shared DBPool so
// repeated Open calls against the same DSN reuse one connection (and, for
// sqlite, stay inside the pool's single-connection discipline).
func Open(pool *config.DBPool, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := pool.Get(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	s := &Store{db: db, dialect: cfg.Dialect()}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// q rewrites a query written with "?" placeholders into postgres's
// "$1, $2, ..." form when the store is running against postgres; sqlite
// and mysql both accept "?" as-is.
func (s *Store) q(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.q(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.q(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.q(query), args...)
}

// Close is a no-op: the pool owns the *sql.DB, and actual teardown
// happens via the pool at process shutdown.
func (s *Store) Close() error { return nil }

// now returns the current UTC time truncated to millisecond precision,
// matching the timestamp granularity spec.md §8 expects for duration
// invariants.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// utcDate returns t's calendar date in UTC, as used by the per-day
// rate-limit and token-usage keys.
func utcDate(t time.Time) string { return t.UTC().Format("2006-01-02") }
