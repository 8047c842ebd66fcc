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

package embedders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromasearch/searchsvc/pkg/config"
)

// huggingFaceEmbedder calls a self-hosted sentence-transformers inference
// endpoint (e.g. text-embeddings-inference or a small Flask/FastAPI
// wrapper), in place of the original's in-process transformer runtime —
// the Open Question decision recorded in DESIGN.md.
type huggingFaceEmbedder struct {
	client    *http.Client
	baseURL   string
	model     string
	dimension int
	batchSize int
}

type huggingFaceEmbedRequest struct {
	Inputs []string `json:"inputs"`
}

// NewHuggingFaceEmbedder builds an Embedder bound to a self-hosted
// huggingface-compatible inference endpoint.
func NewHuggingFaceEmbedder(cfg *config.EmbedderConfig) (Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required for the huggingface embedder")
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 384 // all-MiniLM-L6-v2's native width
	}

	return &huggingFaceEmbedder{
		client:    &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second},
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: dimension,
		batchSize: cfg.BatchSize,
	}, nil
}

func (e *huggingFaceEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(huggingFaceEmbedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal huggingface request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build huggingface request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("huggingface request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read huggingface response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddings [][]float32
	if err := json.Unmarshal(body, &embeddings); err != nil {
		return nil, fmt.Errorf("failed to decode huggingface response: %w", err)
	}
	return embeddings, nil
}

func (e *huggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("huggingface endpoint returned no embedding")
	}
	return vecs[0], nil
}

func (e *huggingFaceEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out [][]float32
	for _, chunk := range batch(texts, e.batchSize) {
		vecs, err := e.request(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *huggingFaceEmbedder) Dimension() int { return e.dimension }
func (e *huggingFaceEmbedder) Model() string  { return e.model }
func (e *huggingFaceEmbedder) Close() error   { return nil }
