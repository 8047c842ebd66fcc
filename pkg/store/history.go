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
	"database/sql"
	"fmt"
)

// SaveSearch appends a SearchHistory row. Best-effort per spec.md §4.2
// step 8 / §7 recovery policy — callers should log and continue on
// error rather than fail the enclosing search request.
func (s *Store) SaveSearch(ctx context.Context, e SearchHistoryEntry) (int64, error) {
	res, err := s.exec(ctx, `
		INSERT INTO search_history (query, result_count, took_ms, ts, collection, provider, model, results_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Query, e.ResultCount, e.TookMS, now(), e.Collection, e.Provider, e.Model, e.ResultsJSON)
	if err != nil {
		return 0, fmt.Errorf("failed to save search history: %w", err)
	}
	return res.LastInsertId()
}

// GetSearchHistory returns up to limit rows starting at offset, most
// recent first. When id is non-nil, it returns at most the single
// matching row.
func (s *Store) GetSearchHistory(ctx context.Context, limit, offset int, id *int64) ([]SearchHistoryEntry, int, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if id != nil {
		rows, err = s.query(ctx, `
			SELECT id, query, result_count, took_ms, ts, collection, provider, model, results_json
			FROM search_history WHERE id = ?`, *id)
	} else {
		rows, err = s.query(ctx, `
			SELECT id, query, result_count, took_ms, ts, collection, provider, model, results_json
			FROM search_history ORDER BY ts DESC LIMIT ? OFFSET ?`, limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	var entries []SearchHistoryEntry
	for rows.Next() {
		var e SearchHistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &e.TookMS, &e.Timestamp, &e.Collection, &e.Provider, &e.Model, &e.ResultsJSON); err != nil {
			return nil, 0, fmt.Errorf("failed to scan search history row: %w", err)
		}
		entries = append(entries, e)
	}

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search history: %w", err)
	}
	return entries, total, nil
}

// GetSearchResults returns the stored results_json blob for a single
// history row.
func (s *Store) GetSearchResults(ctx context.Context, id int64) (string, error) {
	var resultsJSON string
	err := s.queryRow(ctx, `SELECT results_json FROM search_history WHERE id = ?`, id).Scan(&resultsJSON)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("search history id %d not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query search results: %w", err)
	}
	return resultsJSON, nil
}

// TopQuery is one row of the GET /history/top aggregate.
type TopQuery struct {
	Query string
	Count int
}

// GetTopQueries aggregates search_history by query text, returning the
// limit most frequent queries with at least minCount occurrences.
func (s *Store) GetTopQueries(ctx context.Context, limit, minCount int) ([]TopQuery, error) {
	rows, err := s.query(ctx, `
		SELECT query, COUNT(*) AS cnt FROM search_history
		GROUP BY query HAVING COUNT(*) >= ?
		ORDER BY cnt DESC LIMIT ?`, minCount, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top queries: %w", err)
	}
	defer rows.Close()

	var out []TopQuery
	for rows.Next() {
		var t TopQuery
		if err := rows.Scan(&t.Query, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top query row: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}
