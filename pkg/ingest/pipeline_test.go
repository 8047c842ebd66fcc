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

package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// fakeVectorStore is a minimal in-memory vectorstore.Client double
// sufficient to exercise Pipeline.Run.
type fakeVectorStore struct {
	collections map[string]int // name -> document count
	metadata    map[string]vectorstore.CollectionMetadata
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: map[string]int{}, metadata: map[string]vectorstore.CollectionMetadata{}}
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
	m, ok := f.metadata[name]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return &m, nil
}
func (f *fakeVectorStore) CreateCollection(ctx context.Context, name string, metadata vectorstore.CollectionMetadata) error {
	if _, ok := f.collections[name]; !ok {
		f.collections[name] = 0
	}
	f.metadata[name] = metadata
	return nil
}
func (f *fakeVectorStore) DeleteCollection(ctx context.Context, name string) error {
	delete(f.collections, name)
	delete(f.metadata, name)
	return nil
}
func (f *fakeVectorStore) Count(ctx context.Context, collection string) (int, error) {
	return f.collections[collection], nil
}
func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, ids, documents []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	f.collections[collection] += len(ids)
	return nil
}
func (f *fakeVectorStore) Query(ctx context.Context, collection string, req vectorstore.QueryRequest) ([]vectorstore.Hit, error) {
	return nil, nil
}
func (f *fakeVectorStore) Get(ctx context.Context, collection string, req vectorstore.GetRequest) ([]vectorstore.Hit, error) {
	return nil, nil
}
func (f *fakeVectorStore) Close() error { return nil }

// fakeEmbedder returns a constant vector for every text, so
// Pipeline.embedAndUpsert has something deterministic to assert on.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}
func (fakeEmbedder) Dimension() int { return 2 }
func (fakeEmbedder) Model() string  { return "fake" }
func (fakeEmbedder) Close() error   { return nil }

const sampleDump = "INSERT INTO `book_pages` VALUES (1,1,'Book','1','Intro',1,'<p>Chapter One</p><p>This is the body text of the first page, long enough to be a real paragraph.</p>','',\"\");\n" +
	"INSERT INTO `book_pages` VALUES (2,1,'Book','1','Intro',2,'<p>Another page with its own short body text here.</p>','','');\n"

func TestPipelineRunCreatesJobAndUpsertsSegments(t *testing.T) {
	vs := newFakeVectorStore()
	s := store.OpenForTest(t)
	p := &Pipeline{VS: vs, Embedder: fakeEmbedder{}, Store: s}

	result, err := p.Run(context.Background(), strings.NewReader(sampleDump), Options{
		Collection: "books", Provider: "openai", Model: "text-embedding-3-small", BatchSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "books", result.Collection)
	require.Equal(t, 2, result.TotalRecords)
	require.Equal(t, 1, result.TotalBooks)
	require.Greater(t, result.TotalSegments, 0)
	require.Equal(t, result.TotalSegments, vs.collections["books"])

	job, err := s.GetExportJob(context.Background(), result.JobID)
	require.NoError(t, err)
	require.Equal(t, store.JobCompleted, job.Status)
	require.Equal(t, result.TotalSegments, job.TotalSegments)
}

func TestPipelineRunWithNoneProviderSkipsEmbedding(t *testing.T) {
	vs := newFakeVectorStore()
	s := store.OpenForTest(t)
	p := &Pipeline{VS: vs, Embedder: nil, Store: s}

	result, err := p.Run(context.Background(), strings.NewReader(sampleDump), Options{Collection: "books2", Provider: "none"})
	require.NoError(t, err)
	require.Greater(t, result.TotalSegments, 0)
}

func TestPipelineResolveCollectionNameSuffixesOnCollision(t *testing.T) {
	vs := newFakeVectorStore()
	require.NoError(t, vs.CreateCollection(context.Background(), "books", vectorstore.CollectionMetadata{}))

	s := store.OpenForTest(t)
	p := &Pipeline{VS: vs, Store: s}

	name, err := p.resolveCollectionName(context.Background(), Options{Collection: "books"})
	require.NoError(t, err)
	require.NotEqual(t, "books", name)
	require.True(t, strings.HasPrefix(name, "books_"))
}

func TestPipelineResolveCollectionNameResetDeletesExisting(t *testing.T) {
	vs := newFakeVectorStore()
	require.NoError(t, vs.CreateCollection(context.Background(), "books", vectorstore.CollectionMetadata{}))

	s := store.OpenForTest(t)
	p := &Pipeline{VS: vs, Store: s}

	name, err := p.resolveCollectionName(context.Background(), Options{Collection: "books", Reset: true})
	require.NoError(t, err)
	require.Equal(t, "books", name)
	_, ok := vs.collections["books"]
	require.False(t, ok)
}
