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
	"context"
	"fmt"
)

// schemaStatements declares every table idempotently (IF NOT EXISTS), per
// spec.md §4.7/§5 — schema init must be race-safe across concurrent
// process starts.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		took_ms INTEGER NOT NULL,
		ts TIMESTAMP NOT NULL,
		collection TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		results_json TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_history_ts ON search_history(ts)`,
	`CREATE INDEX IF NOT EXISTS idx_search_history_query ON search_history(query)`,

	`CREATE TABLE IF NOT EXISTS export_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		status TEXT NOT NULL,
		collection TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		max_length INTEGER NOT NULL,
		context_length INTEGER NOT NULL,
		min_paragraph_lines INTEGER NOT NULL,
		title_weight REAL NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		total_records INTEGER NOT NULL DEFAULT 0,
		total_books INTEGER NOT NULL DEFAULT 0,
		total_segments INTEGER NOT NULL DEFAULT 0,
		total_documents_in_collection INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		command_args TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_export_jobs_status ON export_jobs(status)`,

	`CREATE TABLE IF NOT EXISTS embedding_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		collection TEXT NOT NULL,
		job_id INTEGER,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		color TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		last_completed_job_at TIMESTAMP,
		UNIQUE(provider, model, collection)
	)`,

	`CREATE TABLE IF NOT EXISTS query_approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		search_count INTEGER NOT NULL DEFAULT 0,
		last_searched_at TIMESTAMP,
		notes TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS search_votes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guest_user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		model_id INTEGER,
		result_id TEXT,
		vote_type TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(guest_user_id, query, model_id, result_id)
	)`,

	`CREATE TABLE IF NOT EXISTS api_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS api_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		daily_limit INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_tokens_hash ON api_tokens(token_hash)`,

	`CREATE TABLE IF NOT EXISTS api_token_usage (
		token_id INTEGER NOT NULL,
		usage_date TEXT NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 0,
		last_request_at TIMESTAMP,
		PRIMARY KEY (token_id, usage_date)
	)`,
}

// initSchema creates every table declared above, inside the dialect this
// Store was opened with.
func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
