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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type searchResponseDTO struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(rdb, "test")
}

func TestGetSetRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	want := searchResponseDTO{Query: "dogs", Results: []string{"a", "b"}}
	require.NoError(t, c.Set(ctx, "key1", want, time.Minute))

	var got searchResponseDTO
	found, err := c.Get(ctx, "key1", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestGetMiss(t *testing.T) {
	c := newTestClient(t)
	var got searchResponseDTO
	found, err := c.Get(context.Background(), "missing", &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetTreatsMalformedEntryAsMiss(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.rdb.Set(ctx, c.key("bad"), "not json", time.Minute).Err())

	var got searchResponseDTO
	found, err := c.Get(ctx, "bad", &got)
	require.NoError(t, err)
	require.False(t, found)

	// malformed entry should have been deleted, not merely ignored
	_, err = c.rdb.Get(ctx, c.key("bad")).Result()
	require.ErrorIs(t, err, redis.Nil)
}

func TestNormalizeQuery(t *testing.T) {
	require.Equal(t, "golden retriever puppies", NormalizeQuery("  Golden   Retriever\tPuppies  "))
}

func TestSearchKeyDeterministic(t *testing.T) {
	k1 := SearchKey("golden retriever", "openai", "text-embedding-3-small", "books", 10, 1, 20, true)
	k2 := SearchKey("Golden Retriever", "openai", "text-embedding-3-small", "books", 10, 1, 20, true)
	require.Equal(t, k1, k2, "normalization should make equivalent queries hash identically")
	require.Contains(t, k1, ":ctx")

	k3 := SearchKey("golden retriever", "openai", "text-embedding-3-small", "books", 10, 1, 20, false)
	require.Contains(t, k3, ":seg")
	require.NotEqual(t, k1, k3)
}

func TestMultiSearchKey(t *testing.T) {
	k := MultiSearchKey("golden retriever", "1,2,3", 10)
	require.Contains(t, k, "multi-search:")
	require.Contains(t, k, ":1,2,3:k10")
}
