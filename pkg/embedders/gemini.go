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
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/chromasearch/searchsvc/pkg/config"
)

// geminiEmbedder uses the official google.golang.org/genai SDK, the same
// client construction style as pkg/model/gemini in the teacher repo.
type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	batchSize int
}

// knownGeminiDimensions maps well-known Gemini embedding models to their
// output width, used when EmbedderConfig.Dimension is left at zero.
var knownGeminiDimensions = map[string]int{
	"text-embedding-004": 768,
}

// NewGeminiEmbedder builds an Embedder bound to Google's Gemini embedding
// API.
func NewGeminiEmbedder(cfg *config.EmbedderConfig) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for the gemini embedder")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = knownGeminiDimensions[cfg.Model]
		if dimension == 0 {
			dimension = 768
		}
	}

	return &geminiEmbedder{
		client:    client,
		model:     cfg.Model,
		dimension: dimension,
		batchSize: cfg.BatchSize,
	}, nil
}

func (e *geminiEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	content := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, content, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed request failed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding")
	}
	return resp.Embeddings[0].Values, nil
}

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text)
}

func (e *geminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, chunk := range batch(texts, e.batchSize) {
		for _, t := range chunk {
			v, err := e.embedOne(ctx, t)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func (e *geminiEmbedder) Dimension() int { return e.dimension }
func (e *geminiEmbedder) Model() string  { return e.model }
func (e *geminiEmbedder) Close() error   { return nil }
