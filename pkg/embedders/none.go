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

	"github.com/chromasearch/searchsvc/pkg/config"
)

// noneEmbedder always fails to embed. It is bound to models whose
// collection was seeded with Chroma's own server-side embedding function
// and never needs a local vector for a query — the search orchestrator
// relies entirely on vectorstore.ErrNoEmbeddingFunction never firing for
// these models, and reaching this embedder at all is itself a
// misconfiguration.
type noneEmbedder struct {
	model string
}

// NewNoneEmbedder builds a no-op Embedder for provider "none".
func NewNoneEmbedder(cfg *config.EmbedderConfig) Embedder {
	return &noneEmbedder{model: cfg.Model}
}

func (e *noneEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedder %q: embedding provider is \"none\"; this model relies on the vector store's own embedding function", e.model)
}

func (e *noneEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedder %q: embedding provider is \"none\"; this model relies on the vector store's own embedding function", e.model)
}

func (e *noneEmbedder) Dimension() int { return 0 }
func (e *noneEmbedder) Model() string  { return e.model }
func (e *noneEmbedder) Close() error   { return nil }
