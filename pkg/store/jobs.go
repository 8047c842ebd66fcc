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

// CreateExportJob inserts a new job in the "running" state, per spec.md
// §3's ExportJob lifecycle ("created running at ingest start").
func (s *Store) CreateExportJob(ctx context.Context, j ExportJob) (int64, error) {
	j.Status = JobRunning
	j.StartedAt = now()
	res, err := s.exec(ctx, `
		INSERT INTO export_jobs (status, collection, provider, model, max_length, context_length,
			min_paragraph_lines, title_weight, started_at, command_args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Status, j.Collection, j.Provider, j.Model, j.MaxLength, j.ContextLength,
		j.MinParagraphLines, j.TitleWeight, j.StartedAt, j.CommandArgs)
	if err != nil {
		return 0, fmt.Errorf("failed to create export job: %w", err)
	}
	return res.LastInsertId()
}

// CompleteExportJob transitions a job to "completed" exactly once,
// recording final totals.
func (s *Store) CompleteExportJob(ctx context.Context, id int64, totalRecords, totalBooks, totalSegments, totalDocs int) error {
	_, err := s.exec(ctx, `
		UPDATE export_jobs SET status = ?, completed_at = ?, total_records = ?, total_books = ?,
			total_segments = ?, total_documents_in_collection = ?
		WHERE id = ? AND status = ?`,
		JobCompleted, now(), totalRecords, totalBooks, totalSegments, totalDocs, id, JobRunning)
	if err != nil {
		return fmt.Errorf("failed to complete export job %d: %w", id, err)
	}
	return nil
}

// FailExportJob transitions a job to "failed" exactly once, recording
// the error message.
func (s *Store) FailExportJob(ctx context.Context, id int64, errMsg string) error {
	_, err := s.exec(ctx, `
		UPDATE export_jobs SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ? AND status = ?`,
		JobFailed, now(), errMsg, id, JobRunning)
	if err != nil {
		return fmt.Errorf("failed to fail export job %d: %w", id, err)
	}
	return nil
}

func scanExportJob(row interface{ Scan(...interface{}) error }) (*ExportJob, error) {
	var j ExportJob
	var completedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(&j.ID, &j.Status, &j.Collection, &j.Provider, &j.Model, &j.MaxLength,
		&j.ContextLength, &j.MinParagraphLines, &j.TitleWeight, &j.StartedAt, &completedAt,
		&j.TotalRecords, &j.TotalBooks, &j.TotalSegments, &j.TotalDocumentsInCollection,
		&errMsg, &j.CommandArgs); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	j.ErrorMessage = errMsg.String
	return &j, nil
}

const exportJobColumns = `id, status, collection, provider, model, max_length, context_length,
	min_paragraph_lines, title_weight, started_at, completed_at, total_records, total_books,
	total_segments, total_documents_in_collection, error_message, command_args`

// GetExportJob fetches a single job by id.
func (s *Store) GetExportJob(ctx context.Context, id int64) (*ExportJob, error) {
	row := s.queryRow(ctx, `SELECT `+exportJobColumns+` FROM export_jobs WHERE id = ?`, id)
	j, err := scanExportJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("export job %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export job: %w", err)
	}
	return j, nil
}

// ListExportJobs returns the most recent jobs, newest first.
func (s *Store) ListExportJobs(ctx context.Context, limit int) ([]ExportJob, error) {
	rows, err := s.query(ctx, `SELECT `+exportJobColumns+` FROM export_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	defer rows.Close()

	var out []ExportJob
	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job row: %w", err)
		}
		out = append(out, *j)
	}
	return out, nil
}

// exportJobColumnsQualified is exportJobColumns qualified with the "j"
// alias, for the self-join in GetLatestCompletedModelJobs.
const exportJobColumnsQualified = `j.id, j.status, j.collection, j.provider, j.model, j.max_length,
	j.context_length, j.min_paragraph_lines, j.title_weight, j.started_at, j.completed_at,
	j.total_records, j.total_books, j.total_segments, j.total_documents_in_collection,
	j.error_message, j.command_args`

// GetLatestCompletedModelJobs returns, for each unique (provider, model,
// collection) triple, the most recently completed job — a self-join on
// max(completed_at), grounding spec.md §4.7's "joins to unique
// (provider, model, collection) keyed on max completed_at".
func (s *Store) GetLatestCompletedModelJobs(ctx context.Context, limit int) ([]ExportJob, error) {
	rows, err := s.query(ctx, `
		SELECT `+exportJobColumnsQualified+`
		FROM export_jobs j
		INNER JOIN (
			SELECT provider, model, collection, MAX(completed_at) AS max_completed_at
			FROM export_jobs WHERE status = ?
			GROUP BY provider, model, collection
		) latest ON j.provider = latest.provider AND j.model = latest.model
			AND j.collection = latest.collection AND j.completed_at = latest.max_completed_at
		ORDER BY j.completed_at DESC LIMIT ?`, JobCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest completed model jobs: %w", err)
	}
	defer rows.Close()

	var out []ExportJob
	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job row: %w", err)
		}
		out = append(out, *j)
	}
	return out, nil
}
