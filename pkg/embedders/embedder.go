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

// Package embedders wraps the embedding backends a model can be bound to:
// openai, gemini, a self-hosted huggingface inference endpoint, or none
// (for collections that rely entirely on Chroma's server-side
// query_texts embedding and never need a local vector for a query).
package embedders

import (
	"context"
	"fmt"

	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/registry"
)

// Embedder turns text into vectors for a single bound model.
type Embedder interface {
	// Embed returns the embedding for a single query string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for a batch of documents, in order.
	// Implementations chunk internally according to their configured
	// batch size.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector width.
	Dimension() int

	// Model returns the provider-specific model name.
	Model() string

	// Close releases provider resources.
	Close() error
}

// Registry holds Embedders by name. LoadAll registers one per entry of
// config.Config.Embedders under its configured name; the search
// orchestrator also registers embedders it builds on demand under
// "provider:model" keys.
type Registry struct {
	*registry.BaseRegistry[Embedder]
}

// NewRegistry creates an empty embedder registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Embedder]()}
}

// CreateFromConfig builds the embedder for "name" from cfg, registers it,
// and returns it. This is the Go analogue of the original service's
// create_embedder_for_model factory.
func (r *Registry) CreateFromConfig(name string, cfg *config.EmbedderConfig) (Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config for %q is nil", name)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedder config for %q: %w", name, err)
	}

	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "openai":
		e, err = NewOpenAIEmbedder(cfg)
	case "gemini":
		e, err = NewGeminiEmbedder(cfg)
	case "huggingface":
		e, err = NewHuggingFaceEmbedder(cfg)
	case "none":
		e = NewNoneEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s embedder %q: %w", cfg.Provider, name, err)
	}

	if err := r.Register(name, e); err != nil {
		return nil, fmt.Errorf("failed to register embedder %q: %w", name, err)
	}
	return e, nil
}

// LoadAll builds and registers an embedder for every entry in embedders,
// returning on the first failure.
func (r *Registry) LoadAll(embedders map[string]*config.EmbedderConfig) error {
	for name, cfg := range embedders {
		if _, err := r.CreateFromConfig(name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ForModel retrieves the embedder registered for a model name, falling
// back to "default" when name is empty.
func (r *Registry) ForModel(name string) (Embedder, error) {
	if name == "" {
		name = "default"
	}
	e, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("no embedder registered for model %q", name)
	}
	return e, nil
}

// batch splits texts into chunks of at most size (size<=0 means no
// splitting).
func batch(texts []string, size int) [][]string {
	if size <= 0 || len(texts) <= size {
		return [][]string{texts}
	}
	var out [][]string
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[i:end])
	}
	return out
}
