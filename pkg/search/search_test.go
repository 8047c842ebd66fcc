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

package search

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/chromasearch/searchsvc/pkg/cache"
	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/embedders"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// fakeVectorStore is an in-memory vectorstore.Client double keyed by
// collection name, letting tests assert the orchestrator's query and
// get-by-filter behavior without a real Chroma server.
type fakeVectorStore struct {
	collections map[string][]vectorstore.Hit
	queryErr    error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: map[string][]vectorstore.Hit{}}
}

func (f *fakeVectorStore) Heartbeat(ctx context.Context) error { return nil }
func (f *fakeVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	var out []string
	for k := range f.collections {
		out = append(out, k)
	}
	return out, nil
}
func (f *fakeVectorStore) GetCollection(ctx context.Context, name string) (*vectorstore.CollectionMetadata, error) {
	if _, ok := f.collections[name]; !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return &vectorstore.CollectionMetadata{}, nil
}
func (f *fakeVectorStore) CreateCollection(ctx context.Context, name string, metadata vectorstore.CollectionMetadata) error {
	f.collections[name] = nil
	return nil
}
func (f *fakeVectorStore) DeleteCollection(ctx context.Context, name string) error {
	delete(f.collections, name)
	return nil
}
func (f *fakeVectorStore) Count(ctx context.Context, collection string) (int, error) {
	return len(f.collections[collection]), nil
}
func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, ids, documents []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	return nil
}
func (f *fakeVectorStore) Query(ctx context.Context, collection string, req vectorstore.QueryRequest) ([]vectorstore.Hit, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	hits := f.collections[collection]
	if req.NResults > 0 && req.NResults < len(hits) {
		hits = hits[:req.NResults]
	}
	return hits, nil
}
func (f *fakeVectorStore) Get(ctx context.Context, collection string, req vectorstore.GetRequest) ([]vectorstore.Hit, error) {
	return nil, nil
}
func (f *fakeVectorStore) Close() error { return nil }

// fakeEmbedder is a constant-vector Embedder double for exercising the
// multi-model path, which always embeds client-side and would otherwise
// require a real provider.
type fakeEmbedder struct{ model string }

func (e fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}
func (e fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}
func (e fakeEmbedder) Dimension() int { return 3 }
func (e fakeEmbedder) Model() string  { return e.model }
func (e fakeEmbedder) Close() error   { return nil }

func newTestCache(t *testing.T) *cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewFromClient(rdb, "test")
}

func newTestOrchestrator(t *testing.T, vs *fakeVectorStore) (*Orchestrator, *store.Store) {
	t.Helper()
	s := store.OpenForTest(t)

	cfg := &config.Config{
		VectorStore: config.VectorStoreConfig{Collection: "books"},
		Embedders:   map[string]*config.EmbedderConfig{"default": {Provider: "none"}},
	}
	cfg.SetDefaults()

	reg := embedders.NewRegistry()
	require.NoError(t, reg.LoadAll(cfg.Embedders))

	o := New(cfg, vs, reg, newTestCache(t), s)
	return o, s
}

func TestSearchReturnsResultsAndSavesHistory(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["books"] = []vectorstore.Hit{
		{ID: "doc-1", Document: "golden retrievers are friendly", Distance: 0.1},
		{ID: "doc-2", Document: "labradors are also friendly", Distance: 0.2},
	}
	o, s := newTestOrchestrator(t, vs)
	ctx := context.Background()

	resp, err := o.Search(ctx, Request{Query: "dogs", TopK: 3, Page: 1, PageSize: 10, Save: true})
	require.NoError(t, err)
	require.Equal(t, "realtime", resp.CacheSource)
	require.Len(t, resp.Results, 2)
	require.Equal(t, "doc-1", resp.Results[0].DocumentID)

	entries, total, err := s.GetSearchHistory(ctx, 10, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "dogs", entries[0].Query)
}

func TestSearchRejectsInvalidTopK(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeVectorStore())
	_, err := o.Search(context.Background(), Request{Query: "dogs", TopK: 0, Page: 1, PageSize: 10})
	require.Error(t, err)

	_, err = o.Search(context.Background(), Request{Query: "dogs", TopK: 51, Page: 1, PageSize: 10})
	require.Error(t, err)
}

func TestSearchCacheHitOnSecondCall(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["books"] = []vectorstore.Hit{{ID: "doc-1", Document: "dogs", Distance: 0.1}}
	o, _ := newTestOrchestrator(t, vs)
	ctx := context.Background()

	req := Request{Query: "dogs", TopK: 3, Page: 1, PageSize: 10, UseCache: true}

	first, err := o.Search(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "realtime", first.CacheSource)

	second, err := o.Search(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "cache", second.CacheSource)
}

func TestSearchEmptyPageBeyondWindow(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["books"] = []vectorstore.Hit{{ID: "doc-1", Document: "dogs", Distance: 0.1}}
	o, _ := newTestOrchestrator(t, vs)

	resp, err := o.Search(context.Background(), Request{Query: "dogs", TopK: 5, Page: 5, PageSize: 10})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.False(t, resp.Pagination.HasNextPage)
}

func TestMultiSearchDeduplicatesAcrossModels(t *testing.T) {
	vs := newFakeVectorStore()
	vs.collections["col-a"] = []vectorstore.Hit{{ID: "doc-42", Document: "shared", Distance: 0.1}, {ID: "doc-a2", Document: "a2", Distance: 0.2}}
	vs.collections["col-b"] = []vectorstore.Hit{{ID: "doc-42", Document: "shared", Distance: 0.05}, {ID: "doc-b2", Document: "b2", Distance: 0.2}}

	o, s := newTestOrchestrator(t, vs)
	ctx := context.Background()

	id1, err := s.CreateExportJob(ctx, store.ExportJob{Collection: "col-a", Provider: "fake", Model: "m1"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteExportJob(ctx, id1, 1, 1, 1, 1))
	id2, err := s.CreateExportJob(ctx, store.ExportJob{Collection: "col-b", Provider: "fake", Model: "m2"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteExportJob(ctx, id2, 1, 1, 1, 1))
	require.NoError(t, s.SyncEmbeddingModelsFromJobs(ctx, 10))

	require.NoError(t, o.embedders.Register("fake:m1", fakeEmbedder{model: "m1"}))
	require.NoError(t, o.embedders.Register("fake:m2", fakeEmbedder{model: "m2"}))

	models, err := s.ListEmbeddingModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)

	var modelA, modelB int64
	for _, m := range models {
		if m.Collection == "col-a" {
			modelA = m.ID
		} else {
			modelB = m.ID
		}
	}

	resp, err := o.SearchMulti(ctx, MultiRequest{Query: "dogs", ModelIDs: []int64{modelA, modelB}, TopK: 10})
	require.NoError(t, err)

	seen := map[string]int{}
	for _, r := range resp.Results {
		seen[r.DocumentID]++
	}
	require.Equal(t, 1, seen["doc-42"], "doc-42 must appear exactly once")
	require.Equal(t, "doc-42", resp.Results[0].DocumentID, "earliest submitted model's slot wins")
}

func TestMultiSearchRejectsInactiveModel(t *testing.T) {
	vs := newFakeVectorStore()
	o, s := newTestOrchestrator(t, vs)
	ctx := context.Background()

	id, err := s.CreateExportJob(ctx, store.ExportJob{Collection: "col-a", Provider: "none", Model: "m1"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteExportJob(ctx, id, 1, 1, 1, 1))
	require.NoError(t, s.SyncEmbeddingModelsFromJobs(ctx, 10))

	models, err := s.ListEmbeddingModels(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetActive(ctx, models[0].ID, false))

	_, err = o.SearchMulti(ctx, MultiRequest{Query: "dogs", ModelIDs: []int64{models[0].ID}, TopK: 10})
	require.Error(t, err)
}
