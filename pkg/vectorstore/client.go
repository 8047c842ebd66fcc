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

// Package vectorstore is the gateway to the Chroma-compatible vector
// database that holds paragraph-level segments of the book corpus.
package vectorstore

import (
	"context"
	"errors"
)

// ErrNoEmbeddingFunction is returned by Query when the target collection
// was created without a server-side embedding function, so a query_texts
// search is impossible and the caller must embed the query itself before
// retrying with QueryEmbeddings. This is the Go sentinel-error translation
// of the original service's "typed failure" fallback: it only catches the
// specific case where Chroma cannot turn text into a vector on its own,
// not arbitrary query errors.
var ErrNoEmbeddingFunction = errors.New("vectorstore: collection has no embedding function")

// ErrCollectionNotFound is returned when a named collection does not
// exist.
var ErrCollectionNotFound = errors.New("vectorstore: collection not found")

// Hit is a single nearest-neighbour result.
type Hit struct {
	ID       string
	Document string
	Distance float64
	Metadata map[string]interface{}
}

// Score converts Chroma's distance into a similarity score, per spec
// (`score = 1.0 - distance`).
func (h Hit) Score() float64 {
	return 1.0 - h.Distance
}

// QueryRequest describes a nearest-neighbour query. Exactly one of Texts
// or Embeddings should be set: Texts asks the collection to embed the
// query itself (and fails with ErrNoEmbeddingFunction if it can't);
// Embeddings supplies precomputed vectors.
type QueryRequest struct {
	Texts      []string
	Embeddings [][]float32
	NResults   int
	Where      map[string]interface{}
}

// GetRequest fetches documents by metadata filter rather than similarity,
// used for context expansion (re-assembling a paragraph's segments).
type GetRequest struct {
	Where map[string]interface{}
}

// CollectionMetadata is attached at collection-creation time and read
// back to detect provider/model mismatches between the collection an
// ingest run populated and the embedder a search request is using.
type CollectionMetadata struct {
	Source             string  `json:"source,omitempty"`
	MaxLength          int     `json:"max_length,omitempty"`
	ContextLength      int     `json:"context_length,omitempty"`
	MinParagraphLines  int     `json:"min_paragraph_lines,omitempty"`
	TitleWeight        float64 `json:"title_weight,omitempty"`
	EmbeddingProvider  string  `json:"embedding_provider,omitempty"`
	EmbeddingModel     string  `json:"embedding_model,omitempty"`
}

// Client is the vector-store gateway contract. The concrete
// implementation (chroma.go) talks to a remote Chroma-compatible HTTP
// server; a different backend would only need to satisfy this interface.
type Client interface {
	// Heartbeat checks that the server is reachable.
	Heartbeat(ctx context.Context) error

	// ListCollections returns the names of all existing collections.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollection returns the metadata of a collection, or
	// ErrCollectionNotFound.
	GetCollection(ctx context.Context, name string) (*CollectionMetadata, error)

	// CreateCollection creates (or fetches, get-or-create) a collection
	// with the given metadata.
	CreateCollection(ctx context.Context, name string, metadata CollectionMetadata) error

	// DeleteCollection removes a collection, tolerating "not found".
	DeleteCollection(ctx context.Context, name string) error

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Upsert writes a batch of documents with precomputed embeddings (or
	// nil embeddings when the collection owns its own embedding
	// function).
	Upsert(ctx context.Context, collection string, ids, documents []string, embeddings [][]float32, metadatas []map[string]interface{}) error

	// Query performs a nearest-neighbour search. Results are ordered by
	// ascending distance (closest first), matching Chroma.
	Query(ctx context.Context, collection string, req QueryRequest) ([]Hit, error)

	// Get fetches documents by metadata filter, with no ranking.
	Get(ctx context.Context, collection string, req GetRequest) ([]Hit, error)

	// Close releases client resources.
	Close() error
}
