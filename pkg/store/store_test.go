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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveAndGetSearchHistory(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	id, err := s.SaveSearch(ctx, SearchHistoryEntry{
		Query: "golden retriever", ResultCount: 3, TookMS: 42,
		Collection: "books", Provider: "openai", Model: "text-embedding-3-small",
		ResultsJSON: `[{"id":"1"}]`,
	})
	require.NoError(t, err)
	require.Positive(t, id)

	entries, total, err := s.GetSearchHistory(ctx, 10, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, "golden retriever", entries[0].Query)

	results, err := s.GetSearchResults(ctx, id)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"1"}]`, results)
}

func TestExportJobLifecycle(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	id, err := s.CreateExportJob(ctx, ExportJob{
		Collection: "books", Provider: "openai", Model: "text-embedding-3-small", MaxLength: 500,
	})
	require.NoError(t, err)

	job, err := s.GetExportJob(ctx, id)
	require.NoError(t, err)
	require.Equal(t, JobRunning, job.Status)
	require.Nil(t, job.CompletedAt)
	require.Equal(t, time.Duration(0), job.Duration())

	require.NoError(t, s.CompleteExportJob(ctx, id, 100, 10, 500, 500))

	job, err = s.GetExportJob(ctx, id)
	require.NoError(t, err)
	require.Equal(t, JobCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	require.Equal(t, 100, job.TotalRecords)

	// completing an already-completed job is a no-op guarded by the
	// running->completed transition, not a second mutation
	require.NoError(t, s.CompleteExportJob(ctx, id, 999, 999, 999, 999))
	job, err = s.GetExportJob(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 100, job.TotalRecords, "second complete call must not overwrite a terminal job")
}

func TestFailExportJob(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	id, err := s.CreateExportJob(ctx, ExportJob{Collection: "books", Provider: "openai", Model: "m"})
	require.NoError(t, err)

	require.NoError(t, s.FailExportJob(ctx, id, "embedding provider unreachable"))

	job, err := s.GetExportJob(ctx, id)
	require.NoError(t, err)
	require.Equal(t, JobFailed, job.Status)
	require.Equal(t, "embedding provider unreachable", job.ErrorMessage)
}

func TestSyncEmbeddingModelsFromJobs(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	id1, err := s.CreateExportJob(ctx, ExportJob{Collection: "books", Provider: "openai", Model: "m1"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteExportJob(ctx, id1, 10, 1, 10, 10))

	id2, err := s.CreateExportJob(ctx, ExportJob{Collection: "books", Provider: "openai", Model: "m2"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteExportJob(ctx, id2, 20, 2, 20, 20))

	require.NoError(t, s.SyncEmbeddingModelsFromJobs(ctx, 10))

	models, err := s.ListEmbeddingModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	require.NotEqual(t, models[0].Color, models[1].Color, "distinct models get distinct palette colors")

	// re-running the sync against the same completed jobs must not
	// duplicate rows
	require.NoError(t, s.SyncEmbeddingModelsFromJobs(ctx, 10))
	models, err = s.ListEmbeddingModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
}

func TestUpdateColorRejectsInvalidHex(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	id, err := s.CreateExportJob(ctx, ExportJob{Collection: "books", Provider: "openai", Model: "m1"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteExportJob(ctx, id, 1, 1, 1, 1))
	require.NoError(t, s.SyncEmbeddingModelsFromJobs(ctx, 10))

	models, err := s.ListEmbeddingModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)

	require.Error(t, s.UpdateColor(ctx, models[0].ID, "not-a-color"))
	require.NoError(t, s.UpdateColor(ctx, models[0].ID, "#ABCDEF"))
}

func TestQueryApprovalWorkflow(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateQuerySearchCount(ctx, "golden retriever"))
	require.NoError(t, s.UpdateQuerySearchCount(ctx, "golden retriever"))

	list, err := s.ListQueryApprovals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, list[0].SearchCount)
	require.Equal(t, ApprovalPending, list[0].Status)

	require.NoError(t, s.ApproveQuery(ctx, "golden retriever"))
	// idempotent: approving twice must not error or duplicate the row
	require.NoError(t, s.ApproveQuery(ctx, "golden retriever"))

	approved, err := s.ListApprovedQueries(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)

	require.NoError(t, s.RejectQuery(ctx, "golden retriever"))
	approved, err = s.ListApprovedQueries(ctx, 1, 10)
	require.NoError(t, err)
	require.Empty(t, approved)
}

func TestSaveSearchVoteLatestWins(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	resultID := "doc-1"
	require.NoError(t, s.SaveSearchVote(ctx, SearchVote{
		GuestUserID: "guest-1", Query: "q", ResultID: &resultID, VoteType: VoteLike,
	}))
	stats, err := s.GetVoteStats(ctx, "q", nil, &resultID)
	require.NoError(t, err)
	require.Equal(t, VoteStats{Likes: 1, Dislikes: 0}, stats)

	// same (guest, query, model, result) tuple flips the vote rather than
	// accumulating a second row
	require.NoError(t, s.SaveSearchVote(ctx, SearchVote{
		GuestUserID: "guest-1", Query: "q", ResultID: &resultID, VoteType: VoteDislike,
	}))
	stats, err = s.GetVoteStats(ctx, "q", nil, &resultID)
	require.NoError(t, err)
	require.Equal(t, VoteStats{Likes: 0, Dislikes: 1}, stats)
}

func TestApiTokenUsage(t *testing.T) {
	s := OpenForTest(t)
	ctx := context.Background()

	userID, err := s.CreateApiUser(ctx, "alice")
	require.NoError(t, err)

	tokenID, err := s.CreateApiToken(ctx, ApiToken{UserID: userID, Hash: "deadbeef", DailyLimit: 2})
	require.NoError(t, err)

	got, err := s.GetApiTokenByHash(ctx, "deadbeef")
	require.NoError(t, err)
	require.Equal(t, tokenID, got.ID)

	now := time.Now().UTC()
	count, err := s.IncrementTokenUsage(ctx, tokenID, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = s.IncrementTokenUsage(ctx, tokenID, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	today, err := s.GetTokenUsageToday(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, int64(2), today)
}
