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
	"time"
)

// CreateApiUser registers a new API user.
func (s *Store) CreateApiUser(ctx context.Context, username string) (int64, error) {
	res, err := s.exec(ctx, `INSERT INTO api_users (username, is_active, created_at) VALUES (?, 1, ?)`, username, now())
	if err != nil {
		return 0, fmt.Errorf("failed to create api user: %w", err)
	}
	return res.LastInsertId()
}

// ListApiUsers returns every API user.
func (s *Store) ListApiUsers(ctx context.Context) ([]ApiUser, error) {
	rows, err := s.query(ctx, `SELECT id, username, is_active, created_at FROM api_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list api users: %w", err)
	}
	defer rows.Close()

	var out []ApiUser
	for rows.Next() {
		var u ApiUser
		if err := rows.Scan(&u.ID, &u.Username, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api user row: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// CreateApiToken registers a new token under a user, storing only its
// SHA-256 hash (computed by the auth package, never the raw token).
func (s *Store) CreateApiToken(ctx context.Context, t ApiToken) (int64, error) {
	res, err := s.exec(ctx, `
		INSERT INTO api_tokens (user_id, token_hash, daily_limit, is_active, expires_at, created_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		t.UserID, t.Hash, t.DailyLimit, t.ExpiresAt, now())
	if err != nil {
		return 0, fmt.Errorf("failed to create api token: %w", err)
	}
	return res.LastInsertId()
}

// GetApiTokenByHash looks up a token by its SHA-256 hash — the sole
// token lookup path the auth middleware uses, since raw tokens are
// never persisted.
func (s *Store) GetApiTokenByHash(ctx context.Context, hash string) (*ApiToken, error) {
	var t ApiToken
	var expiresAt sql.NullTime
	err := s.queryRow(ctx, `
		SELECT id, user_id, token_hash, daily_limit, is_active, expires_at, created_at
		FROM api_tokens WHERE token_hash = ?`, hash).
		Scan(&t.ID, &t.UserID, &t.Hash, &t.DailyLimit, &t.IsActive, &expiresAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query api token: %w", err)
	}
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	return &t, nil
}

// GetApiUser fetches a single API user by id.
func (s *Store) GetApiUser(ctx context.Context, id int64) (*ApiUser, error) {
	var u ApiUser
	err := s.queryRow(ctx, `SELECT id, username, is_active, created_at FROM api_users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.IsActive, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("api user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query api user: %w", err)
	}
	return &u, nil
}

// ListApiTokens returns every token belonging to a user.
func (s *Store) ListApiTokens(ctx context.Context, userID int64) ([]ApiToken, error) {
	rows, err := s.query(ctx, `
		SELECT id, user_id, token_hash, daily_limit, is_active, expires_at, created_at
		FROM api_tokens WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api tokens: %w", err)
	}
	defer rows.Close()

	var out []ApiToken
	for rows.Next() {
		var t ApiToken
		var expiresAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Hash, &t.DailyLimit, &t.IsActive, &expiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api token row: %w", err)
		}
		if expiresAt.Valid {
			t.ExpiresAt = &expiresAt.Time
		}
		out = append(out, t)
	}
	return out, nil
}

// SetTokenActive toggles a token's active flag, for admin revocation.
func (s *Store) SetTokenActive(ctx context.Context, tokenID int64, active bool) error {
	res, err := s.exec(ctx, `UPDATE api_tokens SET is_active = ? WHERE id = ?`, active, tokenID)
	if err != nil {
		return fmt.Errorf("failed to set token active flag: %w", err)
	}
	return requireOneRow(res, "api token", tokenID)
}

// IncrementTokenUsage atomically upserts the per-(token, UTC date)
// request counter, per spec.md §5's "atomic per-(token, date)
// upsert-and-increment" guarantee, and returns the counter's new value.
func (s *Store) IncrementTokenUsage(ctx context.Context, tokenID int64, at time.Time) (int64, error) {
	date := utcDate(at)
	upsert := `
		INSERT INTO api_token_usage (token_id, usage_date, request_count, last_request_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(token_id, usage_date) DO UPDATE SET
			request_count = request_count + 1,
			last_request_at = excluded.last_request_at`
	if s.dialect == "mysql" {
		upsert = `
		INSERT INTO api_token_usage (token_id, usage_date, request_count, last_request_at)
		VALUES (?, ?, 1, ?)
		ON DUPLICATE KEY UPDATE
			request_count = request_count + 1,
			last_request_at = VALUES(last_request_at)`
	}
	if _, err := s.exec(ctx, upsert, tokenID, date, at); err != nil {
		return 0, fmt.Errorf("failed to increment token usage: %w", err)
	}

	var count int64
	err := s.queryRow(ctx, `SELECT request_count FROM api_token_usage WHERE token_id = ? AND usage_date = ?`, tokenID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to read token usage: %w", err)
	}
	return count, nil
}

// GetTokenUsageToday returns today's (UTC) request count for a token,
// or zero if no requests have been made yet today.
func (s *Store) GetTokenUsageToday(ctx context.Context, tokenID int64) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `SELECT request_count FROM api_token_usage WHERE token_id = ? AND usage_date = ?`,
		tokenID, utcDate(now())).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query token usage: %w", err)
	}
	return count, nil
}
