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

import "time"

// SearchHistoryEntry is one append-only row of search_history.
type SearchHistoryEntry struct {
	ID          int64
	Query       string
	ResultCount int
	TookMS      int64
	Timestamp   time.Time
	Collection  string
	Provider    string
	Model       string
	ResultsJSON string
}

// ExportJobStatus enumerates the lifecycle of an ExportJob.
type ExportJobStatus string

const (
	JobPending   ExportJobStatus = "pending"
	JobRunning   ExportJobStatus = "running"
	JobCompleted ExportJobStatus = "completed"
	JobFailed    ExportJobStatus = "failed"
)

// ExportJob tracks one ingest run.
type ExportJob struct {
	ID                         int64
	Status                     ExportJobStatus
	Collection                 string
	Provider                   string
	Model                      string
	MaxLength                  int
	ContextLength              int
	MinParagraphLines          int
	TitleWeight                float64
	StartedAt                  time.Time
	CompletedAt                *time.Time
	TotalRecords               int
	TotalBooks                 int
	TotalSegments              int
	TotalDocumentsInCollection int
	ErrorMessage               string
	CommandArgs                string // JSON-encoded, secrets masked
}

// Duration returns completed_at - started_at for a job in a terminal
// state, or zero when still running.
func (j *ExportJob) Duration() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}

// EmbeddingModel is a unique (provider, model, collection) triple
// synthesized from completed export jobs.
type EmbeddingModel struct {
	ID                 int64
	Provider            string
	Model               string
	Collection          string
	JobID               *int64
	IsActive            bool
	Color               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastCompletedJobAt *time.Time
}

// QueryApprovalStatus enumerates the operator decision on a query.
type QueryApprovalStatus string

const (
	ApprovalApproved QueryApprovalStatus = "approved"
	ApprovalRejected QueryApprovalStatus = "rejected"
	ApprovalPending  QueryApprovalStatus = "pending"
)

// QueryApproval is the operator annotation on a distinct search query.
type QueryApproval struct {
	ID             int64
	Query          string
	Status         QueryApprovalStatus
	SearchCount    int
	LastSearchedAt *time.Time
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VoteType enumerates a SearchVote's polarity.
type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
)

// SearchVote records one guest's opinion of a single result.
type SearchVote struct {
	ID          int64
	GuestUserID string
	Query       string
	ModelID     *int64
	ResultID    *string
	VoteType    VoteType
	CreatedAt   time.Time
}

// VoteStats is the {likes, dislikes} summary for one (query, model_id,
// result_id) triple.
type VoteStats struct {
	Likes    int
	Dislikes int
}

// ApiUser owns zero or more ApiTokens.
type ApiUser struct {
	ID        int64
	Username  string
	IsActive  bool
	CreatedAt time.Time
}

// ApiToken is a bearer credential; Hash is the SHA-256 hex digest of the
// raw token, never the raw token itself.
type ApiToken struct {
	ID         int64
	UserID     int64
	Hash       string
	DailyLimit int64
	IsActive   bool
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

// ApiTokenUsage is the per-(token, UTC date) request counter.
type ApiTokenUsage struct {
	TokenID       int64
	Date          string
	RequestCount  int64
	LastRequestAt *time.Time
}
