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

// nullableEq builds "col = ?" for a non-nil pointer or "col IS NULL" for
// nil, since SQL's "col = NULL" never matches. Both model_id and
// result_id are optional per spec.md §3's SearchVote uniqueness key.
func nullableEq(col string, isNil bool) string {
	if isNil {
		return col + " IS NULL"
	}
	return col + " = ?"
}

// SaveSearchVote records a vote with "latest wins" semantics: any
// existing vote for the same (guest_user_id, query, model_id, result_id)
// tuple is deleted before the new one is inserted, per spec.md §3 and
// the at-most-one-vote invariant in §8.
func (s *Store) SaveSearchVote(ctx context.Context, v SearchVote) error {
	whereClause := fmt.Sprintf(`guest_user_id = ? AND query = ? AND %s AND %s`,
		nullableEq("model_id", v.ModelID == nil), nullableEq("result_id", v.ResultID == nil))

	args := []interface{}{v.GuestUserID, v.Query}
	if v.ModelID != nil {
		args = append(args, *v.ModelID)
	}
	if v.ResultID != nil {
		args = append(args, *v.ResultID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM search_votes WHERE `+whereClause), args...); err != nil {
		return fmt.Errorf("failed to delete existing vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO search_votes (guest_user_id, query, model_id, result_id, vote_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		v.GuestUserID, v.Query, v.ModelID, v.ResultID, v.VoteType, now()); err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vote transaction: %w", err)
	}
	return nil
}

// GetVoteStats returns the {likes, dislikes} counts for a single
// (query, model_id, result_id) triple.
func (s *Store) GetVoteStats(ctx context.Context, query string, modelID *int64, resultID *string) (VoteStats, error) {
	whereClause := fmt.Sprintf(`query = ? AND %s AND %s`,
		nullableEq("model_id", modelID == nil), nullableEq("result_id", resultID == nil))
	args := []interface{}{query}
	if modelID != nil {
		args = append(args, *modelID)
	}
	if resultID != nil {
		args = append(args, *resultID)
	}

	rows, err := s.query(ctx, `SELECT vote_type, COUNT(*) FROM search_votes WHERE `+whereClause+` GROUP BY vote_type`, args...)
	if err != nil {
		return VoteStats{}, fmt.Errorf("failed to query vote stats: %w", err)
	}
	defer rows.Close()

	var stats VoteStats
	for rows.Next() {
		var voteType string
		var count int
		if err := rows.Scan(&voteType, &count); err != nil {
			return VoteStats{}, fmt.Errorf("failed to scan vote stats row: %w", err)
		}
		switch VoteType(voteType) {
		case VoteLike:
			stats.Likes = count
		case VoteDislike:
			stats.Dislikes = count
		}
	}
	return stats, nil
}

// VoteSummary is one query's aggregate vote counts across all models and
// results, for the admin diagnostics surface.
type VoteSummary struct {
	Query    string
	Likes    int
	Dislikes int
}

// GetVoteSummary aggregates vote counts per query.
func (s *Store) GetVoteSummary(ctx context.Context, limit int) ([]VoteSummary, error) {
	rows, err := s.query(ctx, `
		SELECT query,
			SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END) AS likes,
			SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END) AS dislikes
		FROM search_votes GROUP BY query ORDER BY (likes + dislikes) DESC LIMIT ?`,
		VoteLike, VoteDislike, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote summary: %w", err)
	}
	defer rows.Close()

	var out []VoteSummary
	for rows.Next() {
		var v VoteSummary
		if err := rows.Scan(&v.Query, &v.Likes, &v.Dislikes); err != nil {
			return nil, fmt.Errorf("failed to scan vote summary row: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
