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

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/httpclient"
)

// chromaClient is an HTTP client for a Chroma v1-API-compatible server.
type chromaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewChromaClient builds a Client from a VectorStoreConfig, configuring
// TLS when the server is addressed over https.
func NewChromaClient(cfg config.VectorStoreConfig) (Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required for Chroma")
	}

	var transport *http.Transport
	if cfg.SSL {
		var err error
		transport, err = httpclient.ConfigureTLS(&httpclient.TLSConfig{})
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &chromaClient{
		baseURL: cfg.BaseURL(),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

func (c *chromaClient) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chroma request failed: %w", err)
	}
	return resp, nil
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func (c *chromaClient) Heartbeat(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/heartbeat", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma heartbeat failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *chromaClient) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/collections", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list collections failed: status %d, body: %s", resp.StatusCode, readBody(resp))
	}
	defer resp.Body.Close()

	var raw []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode collections: %w", err)
	}
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		names = append(names, r.Name)
	}
	return names, nil
}

func (c *chromaClient) GetCollection(ctx context.Context, name string) (*CollectionMetadata, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/collections/"+name, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCollectionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get collection failed: status %d", resp.StatusCode)
	}

	var raw struct {
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	return metadataFromMap(raw.Metadata), nil
}

func metadataFromMap(m map[string]interface{}) *CollectionMetadata {
	get := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		return ""
	}
	geti := func(k string) int {
		if v, ok := m[k].(float64); ok {
			return int(v)
		}
		return 0
	}
	getf := func(k string) float64 {
		if v, ok := m[k].(float64); ok {
			return v
		}
		return 0
	}
	return &CollectionMetadata{
		Source:            get("source"),
		MaxLength:         geti("max_length"),
		ContextLength:     geti("context_length"),
		MinParagraphLines: geti("min_paragraph_lines"),
		TitleWeight:       getf("title_weight"),
		EmbeddingProvider: get("embedding_provider"),
		EmbeddingModel:    get("embedding_model"),
	}
}

func metadataToMap(m CollectionMetadata) map[string]interface{} {
	out := map[string]interface{}{}
	if m.Source != "" {
		out["source"] = m.Source
	}
	if m.MaxLength != 0 {
		out["max_length"] = m.MaxLength
	}
	if m.ContextLength != 0 {
		out["context_length"] = m.ContextLength
	}
	if m.MinParagraphLines != 0 {
		out["min_paragraph_lines"] = m.MinParagraphLines
	}
	if m.TitleWeight != 0 {
		out["title_weight"] = m.TitleWeight
	}
	if m.EmbeddingProvider != "" {
		out["embedding_provider"] = m.EmbeddingProvider
	}
	if m.EmbeddingModel != "" {
		out["embedding_model"] = m.EmbeddingModel
	}
	return out
}

func (c *chromaClient) CreateCollection(ctx context.Context, name string, metadata CollectionMetadata) error {
	payload := map[string]interface{}{
		"name":          name,
		"metadata":      metadataToMap(metadata),
		"get_or_create": true,
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/collections", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create collection failed: status %d, body: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func (c *chromaClient) DeleteCollection(ctx context.Context, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/collections/"+name, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete collection failed: status %d, body: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func (c *chromaClient) Count(ctx context.Context, collection string) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/collections/"+collection+"/count", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("count failed: status %d", resp.StatusCode)
	}
	var n int
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return 0, fmt.Errorf("failed to decode count: %w", err)
	}
	return n, nil
}

func toFloat64Matrix(vs [][]float32) [][]float64 {
	if vs == nil {
		return nil
	}
	out := make([][]float64, len(vs))
	for i, v := range vs {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out
}

func (c *chromaClient) Upsert(ctx context.Context, collection string, ids, documents []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	payload := map[string]interface{}{
		"ids":       ids,
		"documents": documents,
		"metadatas": metadatas,
	}
	if embeddings != nil {
		payload["embeddings"] = toFloat64Matrix(embeddings)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/collections/"+collection+"/add", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upsert failed: status %d, body: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func (c *chromaClient) Query(ctx context.Context, collection string, req QueryRequest) ([]Hit, error) {
	payload := map[string]interface{}{
		"n_results": req.NResults,
		"include":   []string{"documents", "metadatas", "distances"},
	}
	if len(req.Embeddings) > 0 {
		payload["query_embeddings"] = toFloat64Matrix(req.Embeddings)
	} else {
		payload["query_texts"] = req.Texts
	}
	if len(req.Where) > 0 {
		payload["where"] = req.Where
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/collections/"+collection+"/query", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBody(resp)
		if len(req.Embeddings) == 0 && looksLikeMissingEmbeddingFunction(resp.StatusCode, body) {
			return nil, ErrNoEmbeddingFunction
		}
		return nil, fmt.Errorf("query failed: status %d, body: %s", resp.StatusCode, body)
	}

	var raw chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return raw.toHits(), nil
}

// looksLikeMissingEmbeddingFunction recognizes the specific failure shape
// Chroma returns when a query_texts search is attempted against a
// collection that was created with no embedding function — the Go
// analogue of the original's `except (ValueError, TypeError,
// AttributeError)` catch, matched here against the error text Chroma
// actually sends rather than a blanket fallback on every 4xx/5xx.
func looksLikeMissingEmbeddingFunction(status int, body string) bool {
	if status < 400 || status >= 500 {
		return false
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "embedding function") || strings.Contains(lower, "embeddingfunction")
}

func (c *chromaClient) Get(ctx context.Context, collection string, req GetRequest) ([]Hit, error) {
	payload := map[string]interface{}{
		"include": []string{"documents", "metadatas"},
	}
	if len(req.Where) > 0 {
		payload["where"] = req.Where
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/collections/"+collection+"/get", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get failed: status %d, body: %s", resp.StatusCode, readBody(resp))
	}

	var raw chromaGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode get response: %w", err)
	}
	return raw.toHits(), nil
}

func (c *chromaClient) Close() error {
	return nil
}

// chromaQueryResponse mirrors Chroma's nested-array query response shape:
// {"ids": [[...]], "distances": [[...]], "documents": [[...]], "metadatas": [[...]]}.
// The outer slice is one entry per submitted query embedding/text; this
// client only ever submits one query at a time, so only index 0 is read.
type chromaQueryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Distances [][]float64                `json:"distances"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
}

func (r chromaQueryResponse) toHits() []Hit {
	if len(r.IDs) == 0 {
		return nil
	}
	ids := r.IDs[0]
	hits := make([]Hit, 0, len(ids))
	for i, id := range ids {
		h := Hit{ID: id}
		if len(r.Distances) > 0 && i < len(r.Distances[0]) {
			h.Distance = r.Distances[0][i]
		}
		if len(r.Documents) > 0 && i < len(r.Documents[0]) {
			h.Document = r.Documents[0][i]
		}
		if len(r.Metadatas) > 0 && i < len(r.Metadatas[0]) {
			h.Metadata = r.Metadatas[0][i]
		}
		hits = append(hits, h)
	}
	return hits
}

// chromaGetResponse mirrors Chroma's flat (non-nested) get response.
type chromaGetResponse struct {
	IDs       []string                 `json:"ids"`
	Documents []string                 `json:"documents"`
	Metadatas []map[string]interface{} `json:"metadatas"`
}

func (r chromaGetResponse) toHits() []Hit {
	hits := make([]Hit, 0, len(r.IDs))
	for i, id := range r.IDs {
		h := Hit{ID: id}
		if i < len(r.Documents) {
			h.Document = r.Documents[i]
		}
		if i < len(r.Metadatas) {
			h.Metadata = r.Metadatas[i]
		}
		hits = append(hits, h)
	}
	return hits
}
