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

const queryApprovalColumns = `id, query, status, search_count, last_searched_at, notes, created_at, updated_at`

func scanQueryApproval(row interface{ Scan(...interface{}) error }) (*QueryApproval, error) {
	var a QueryApproval
	var lastSearched sql.NullTime
	var notes sql.NullString
	if err := row.Scan(&a.ID, &a.Query, &a.Status, &a.SearchCount, &lastSearched, &notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if lastSearched.Valid {
		a.LastSearchedAt = &lastSearched.Time
	}
	a.Notes = notes.String
	return &a, nil
}

// UpdateQuerySearchCount increments the approval counter for query,
// creating a pending QueryApproval row the first time it is seen. This
// runs on every search per spec.md §3's QueryApproval definition.
func (s *Store) UpdateQuerySearchCount(ctx context.Context, query string) error {
	upsert := `
		INSERT INTO query_approvals (query, status, search_count, last_searched_at, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			search_count = search_count + 1,
			last_searched_at = excluded.last_searched_at,
			updated_at = excluded.updated_at`
	if s.dialect == "mysql" {
		upsert = `
		INSERT INTO query_approvals (query, status, search_count, last_searched_at, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			search_count = search_count + 1,
			last_searched_at = VALUES(last_searched_at),
			updated_at = VALUES(updated_at)`
	}
	_, err := s.exec(ctx, upsert, query, ApprovalPending, now(), now(), now())
	if err != nil {
		return fmt.Errorf("failed to update query search count: %w", err)
	}
	return nil
}

// setApprovalStatus is shared by ApproveQuery/RejectQuery. Idempotent:
// repeated calls only touch updated_at, per spec.md §8's
// approve_query-is-idempotent round-trip property.
func (s *Store) setApprovalStatus(ctx context.Context, query string, status QueryApprovalStatus) error {
	res, err := s.exec(ctx, `UPDATE query_approvals SET status = ?, updated_at = ? WHERE query = ?`, status, now(), query)
	if err != nil {
		return fmt.Errorf("failed to set query approval status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.exec(ctx, `
		INSERT INTO query_approvals (query, status, search_count, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`, query, status, now(), now())
	if err != nil {
		return fmt.Errorf("failed to insert query approval: %w", err)
	}
	return nil
}

// ApproveQuery marks a query approved for public surfacing.
func (s *Store) ApproveQuery(ctx context.Context, query string) error {
	return s.setApprovalStatus(ctx, query, ApprovalApproved)
}

// RejectQuery marks a query rejected (hidden from public surfacing).
func (s *Store) RejectQuery(ctx context.Context, query string) error {
	return s.setApprovalStatus(ctx, query, ApprovalRejected)
}

// DeleteQuery removes a query's approval row entirely.
func (s *Store) DeleteQuery(ctx context.Context, query string) error {
	_, err := s.exec(ctx, `DELETE FROM query_approvals WHERE query = ?`, query)
	if err != nil {
		return fmt.Errorf("failed to delete query approval: %w", err)
	}
	return nil
}

// ListApprovedQueries returns up to limit approved queries with at
// least minCount recorded searches, most-searched first — the backing
// query for GET /approved-queries.
func (s *Store) ListApprovedQueries(ctx context.Context, minCount, limit int) ([]QueryApproval, error) {
	rows, err := s.query(ctx, `
		SELECT `+queryApprovalColumns+` FROM query_approvals
		WHERE status = ? AND search_count >= ?
		ORDER BY search_count DESC LIMIT ?`, ApprovalApproved, minCount, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved queries: %w", err)
	}
	defer rows.Close()

	var out []QueryApproval
	for rows.Next() {
		a, err := scanQueryApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query approval row: %w", err)
		}
		out = append(out, *a)
	}
	return out, nil
}

// ListQueryApprovals returns every tracked query, for the admin surface.
func (s *Store) ListQueryApprovals(ctx context.Context, limit int) ([]QueryApproval, error) {
	rows, err := s.query(ctx, `SELECT `+queryApprovalColumns+` FROM query_approvals ORDER BY search_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query approvals: %w", err)
	}
	defer rows.Close()

	var out []QueryApproval
	for rows.Next() {
		a, err := scanQueryApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query approval row: %w", err)
		}
		out = append(out, *a)
	}
	return out, nil
}
