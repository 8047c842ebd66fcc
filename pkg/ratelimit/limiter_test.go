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

package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chromasearch/searchsvc/pkg/store"
)

func TestCheckAndRecordBoundary(t *testing.T) {
	s := store.OpenForTest(t)
	ctx := context.Background()

	userID, err := s.CreateApiUser(ctx, "alice")
	require.NoError(t, err)
	tokenID, err := s.CreateApiToken(ctx, store.ApiToken{UserID: userID, Hash: "h", DailyLimit: 2})
	require.NoError(t, err)

	l := New(s)

	// a token at exactly rate_limit requests in a day is allowed on the
	// rate_limit-th call
	r1, err := l.CheckAndRecord(ctx, tokenID, 2)
	require.NoError(t, err)
	require.True(t, r1.Allowed)
	require.Equal(t, int64(1), r1.Remaining)

	r2, err := l.CheckAndRecord(ctx, tokenID, 2)
	require.NoError(t, err)
	require.True(t, r2.Allowed)
	require.Equal(t, int64(0), r2.Remaining)

	// the (rate_limit+1)-th call is rejected
	r3, err := l.CheckAndRecord(ctx, tokenID, 2)
	require.NoError(t, err)
	require.False(t, r3.Allowed)
	require.Equal(t, int64(86400), r3.RetryAfterSeconds)
}

func TestCheckAndRecordUnlimited(t *testing.T) {
	s := store.OpenForTest(t)
	ctx := context.Background()

	userID, err := s.CreateApiUser(ctx, "bob")
	require.NoError(t, err)
	tokenID, err := s.CreateApiToken(ctx, store.ApiToken{UserID: userID, Hash: "h2", DailyLimit: 0})
	require.NoError(t, err)

	l := New(s)
	for i := 0; i < 5; i++ {
		r, err := l.CheckAndRecord(ctx, tokenID, 0)
		require.NoError(t, err)
		require.True(t, r.Allowed)
	}
}
