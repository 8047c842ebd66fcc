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
	"regexp"
)

// colorPalette assigns a deterministic display color to each newly
// synced embedding model, by insertion position, per spec.md §4.7.
var colorPalette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#EC4899", "#14B8A6", "#F97316", "#6366F1", "#84CC16",
}

var hexColorRE = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

const embeddingModelColumns = `id, provider, model, collection, job_id, is_active, color,
	created_at, updated_at, last_completed_job_at`

func scanEmbeddingModel(row interface{ Scan(...interface{}) error }) (*EmbeddingModel, error) {
	var m EmbeddingModel
	var jobID sql.NullInt64
	var lastCompleted sql.NullTime
	if err := row.Scan(&m.ID, &m.Provider, &m.Model, &m.Collection, &jobID, &m.IsActive, &m.Color,
		&m.CreatedAt, &m.UpdatedAt, &lastCompleted); err != nil {
		return nil, err
	}
	if jobID.Valid {
		m.JobID = &jobID.Int64
	}
	if lastCompleted.Valid {
		m.LastCompletedJobAt = &lastCompleted.Time
	}
	return &m, nil
}

// SyncEmbeddingModelsFromJobs upserts an EmbeddingModel row for every
// unique (provider, model, collection) triple seen among the most
// recently completed jobs, assigning a palette color by insertion
// position the first time a triple is seen.
func (s *Store) SyncEmbeddingModelsFromJobs(ctx context.Context, limit int) error {
	jobs, err := s.GetLatestCompletedModelJobs(ctx, limit)
	if err != nil {
		return err
	}

	var existingCount int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM embedding_models`).Scan(&existingCount); err != nil {
		return fmt.Errorf("failed to count embedding models: %w", err)
	}

	for _, j := range jobs {
		var existingID int64
		err := s.queryRow(ctx, `
			SELECT id FROM embedding_models WHERE provider = ? AND model = ? AND collection = ?`,
			j.Provider, j.Model, j.Collection).Scan(&existingID)

		switch {
		case err == sql.ErrNoRows:
			color := colorPalette[existingCount%len(colorPalette)]
			existingCount++
			_, err := s.exec(ctx, `
				INSERT INTO embedding_models (provider, model, collection, job_id, is_active, color,
					created_at, updated_at, last_completed_job_at)
				VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?)`,
				j.Provider, j.Model, j.Collection, j.ID, color, now(), now(), j.CompletedAt)
			if err != nil {
				return fmt.Errorf("failed to insert embedding model: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up embedding model: %w", err)
		default:
			_, err := s.exec(ctx, `
				UPDATE embedding_models SET job_id = ?, updated_at = ?, last_completed_job_at = ?
				WHERE id = ?`, j.ID, now(), j.CompletedAt, existingID)
			if err != nil {
				return fmt.Errorf("failed to update embedding model: %w", err)
			}
		}
	}
	return nil
}

// GetEmbeddingModel fetches a single embedding model by id.
func (s *Store) GetEmbeddingModel(ctx context.Context, id int64) (*EmbeddingModel, error) {
	row := s.queryRow(ctx, `SELECT `+embeddingModelColumns+` FROM embedding_models WHERE id = ?`, id)
	m, err := scanEmbeddingModel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding model %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding model: %w", err)
	}
	return m, nil
}

// ListEmbeddingModels returns every registered embedding model.
func (s *Store) ListEmbeddingModels(ctx context.Context) ([]EmbeddingModel, error) {
	rows, err := s.query(ctx, `SELECT `+embeddingModelColumns+` FROM embedding_models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedding models: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingModel
	for rows.Next() {
		m, err := scanEmbeddingModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding model row: %w", err)
		}
		out = append(out, *m)
	}
	return out, nil
}

// SetActive toggles an embedding model's active flag.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.exec(ctx, `UPDATE embedding_models SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	if err != nil {
		return fmt.Errorf("failed to set embedding model active flag: %w", err)
	}
	return requireOneRow(res, "embedding model", id)
}

// UpdateColor changes an embedding model's display color, rejecting
// malformed HEX values (spec.md §4.7, §7 ValidationError).
func (s *Store) UpdateColor(ctx context.Context, id int64, color string) error {
	if !hexColorRE.MatchString(color) {
		return fmt.Errorf("invalid hex color %q", color)
	}
	res, err := s.exec(ctx, `UPDATE embedding_models SET color = ?, updated_at = ? WHERE id = ?`, color, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update embedding model color: %w", err)
	}
	return requireOneRow(res, "embedding model", id)
}

func requireOneRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d not found", what, id)
	}
	return nil
}
