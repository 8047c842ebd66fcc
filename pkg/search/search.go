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

// Package search is the query-time orchestrator: it resolves a model or
// falls back to the process default, consults the response cache,
// queries the vector store, paginates and optionally expands context,
// records history, and re-populates the cache — the single- and
// multi-model contracts of spec.md §4.2/§4.3.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/chromasearch/searchsvc/pkg/apperr"
	"github.com/chromasearch/searchsvc/pkg/cache"
	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/embedders"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// Orchestrator wires together the vector store, embedder registry, cache,
// and persistence layer behind the single- and multi-model search
// operations.
type Orchestrator struct {
	vs        vectorstore.Client
	embedders *embedders.Registry
	cache     *cache.Client
	store     *store.Store
	resp      *config.ResponseConfig
	cacheCfg  *config.CacheConfig

	defaultCollection string
	defaultProvider    string
	defaultModel       string

	// apiKeys holds one credential per provider, collected from the
	// configured embedders at startup, so a per-model-id embedder that
	// was never preloaded can still be constructed on demand (spec.md
	// §4.2 step 1's "construct an embedder for the model's
	// (provider, name)").
	apiKeys map[string]string
}

// New builds an Orchestrator. cfg must already have SetDefaults applied.
// reg should already be preloaded (embedders.Registry.LoadAll) with every
// entry in cfg.Embedders; cacheClient and storeClient may be nil in
// configurations where caching or persistence is unavailable, though in
// this service both are always wired.
func New(cfg *config.Config, vs vectorstore.Client, reg *embedders.Registry, cacheClient *cache.Client, storeClient *store.Store) *Orchestrator {
	apiKeys := map[string]string{}
	for _, e := range cfg.Embedders {
		if e != nil && e.APIKey != "" {
			if _, ok := apiKeys[e.Provider]; !ok {
				apiKeys[e.Provider] = e.APIKey
			}
		}
	}

	def, _ := cfg.GetEmbedder("default")
	o := &Orchestrator{
		vs:                 vs,
		embedders:          reg,
		cache:              cacheClient,
		store:              storeClient,
		resp:               &cfg.Response,
		cacheCfg:           &cfg.Cache,
		defaultCollection:  cfg.VectorStore.Collection,
		apiKeys:            apiKeys,
	}
	if def != nil {
		o.defaultProvider = def.Provider
		o.defaultModel = def.Model
	}
	return o
}

// resolveEmbedder returns the embedder registered for (provider, model),
// building and registering it on first use.
func (o *Orchestrator) resolveEmbedder(provider, model string) (embedders.Embedder, error) {
	key := provider + ":" + model
	if e, ok := o.embedders.Get(key); ok {
		return e, nil
	}
	return o.embedders.CreateFromConfig(key, &config.EmbedderConfig{
		Provider: provider,
		Model:    model,
		APIKey:   o.apiKeys[provider],
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ResultDTO is a single search hit as returned over the wire.
type ResultDTO struct {
	DocumentID string                 `json:"document_id"`
	Text       string                 `json:"text"`
	Score      float64                `json:"score"`
	Distance   float64                `json:"distance"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Pagination describes the page window returned alongside Results.
type Pagination struct {
	Page            int    `json:"page"`
	PageSize        int    `json:"page_size"`
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	EstimatedTotal  string `json:"estimated_total,omitempty"`
}

// Request is the POST /search payload.
type Request struct {
	Query               string `json:"query"`
	TopK                int    `json:"top_k"`
	Page                int    `json:"page"`
	PageSize            int    `json:"page_size"`
	UseCache            bool   `json:"use_cache"`
	IncludeFullContext  bool   `json:"include_full_context"`
	Save                bool   `json:"save"`
	ModelID             *int64 `json:"model_id,omitempty"`
}

// Response is the POST /search result envelope.
type Response struct {
	Query          string      `json:"query"`
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	Collection     string      `json:"collection"`
	Results        []ResultDTO `json:"results"`
	CacheSource    string      `json:"cache_source"`
	TotalDocuments *int        `json:"total_documents,omitempty"`
	Pagination     *Pagination `json:"pagination,omitempty"`
}

// validate enforces the boundary rules from spec.md §8: top_k in
// [1,50], page >= 1, page_size in [1,100], non-empty query.
func (r *Request) validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return apperr.Validation("query must not be empty")
	}
	if r.TopK < 1 || r.TopK > 50 {
		return apperr.Validation("top_k must be between 1 and 50")
	}
	if r.Page < 1 {
		return apperr.Validation("page must be >= 1")
	}
	if r.PageSize < 1 || r.PageSize > 100 {
		return apperr.Validation("page_size must be between 1 and 100")
	}
	return nil
}

// Search runs the single-model contract of spec.md §4.2.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	collection, provider, model, emb, err := o.resolveModel(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}

	cacheKey := cache.SearchKey(req.Query, provider, model, collection, req.TopK, req.Page, req.PageSize, req.IncludeFullContext)
	if req.UseCache && o.cache != nil {
		var cached Response
		if hit, _ := o.cache.Get(ctx, cacheKey, &cached); hit {
			cached.CacheSource = "cache"
			return &cached, nil
		}
	}

	o.warnOnCollectionMismatch(ctx, collection, provider, model)

	nResults := req.TopK
	if o.resp.PaginationEnabled() {
		nResults = clamp(req.Page*req.PageSize, req.PageSize, o.resp.MaxEstimatedResults)
	}

	hits, err := o.queryNearestNeighbours(ctx, collection, req.Query, req.ModelID != nil, emb, nResults)
	if err != nil {
		return nil, err
	}

	start := (req.Page - 1) * req.PageSize
	end := clamp(start+req.PageSize, start, len(hits))
	if start > len(hits) {
		start = len(hits)
	}
	page := hits[start:end]

	results := make([]ResultDTO, len(page))
	for i, h := range page {
		results[i] = toResultDTO(h)
	}
	if req.IncludeFullContext {
		o.expandContext(ctx, collection, results)
	}

	resp := &Response{
		Query:       req.Query,
		Provider:    provider,
		Model:       model,
		Collection:  collection,
		Results:     results,
		CacheSource: "realtime",
	}

	if o.resp.PaginationEnabled() {
		resp.Pagination = &Pagination{
			Page:            req.Page,
			PageSize:        req.PageSize,
			HasNextPage:     end < len(hits),
			HasPreviousPage: req.Page > 1,
		}
		if o.resp.EstimatedResultsEnabled() {
			if len(hits) >= o.resp.MaxEstimatedResults {
				resp.Pagination.EstimatedTotal = "1000+"
			} else {
				resp.Pagination.EstimatedTotal = fmt.Sprintf("%d", len(hits))
			}
		}
	}

	if o.resp.TotalDocumentsEnabled() {
		if count, err := o.vs.Count(ctx, collection); err != nil {
			slog.Warn("failed to count collection documents", "collection", collection, "error", err)
		} else {
			resp.TotalDocuments = &count
		}
	}

	if req.Save && o.store != nil {
		o.saveHistory(ctx, req.Query, collection, provider, model, len(results))
	}

	if len(results) > 0 && o.cache != nil {
		if err := o.cache.Set(ctx, cacheKey, resp, responseTTL(o.resp)); err != nil {
			slog.Warn("failed to cache search response", "error", err)
		}
	}

	return resp, nil
}

// resolveModel implements spec.md §4.2 step 1.
func (o *Orchestrator) resolveModel(ctx context.Context, modelID *int64) (collection, provider, model string, emb embedders.Embedder, err error) {
	if modelID == nil {
		emb, err = o.resolveEmbedder(o.defaultProvider, o.defaultModel)
		if err != nil {
			return "", "", "", nil, apperr.Wrap(apperr.KindInternal, err, "failed to build default embedder")
		}
		return o.defaultCollection, o.defaultProvider, o.defaultModel, emb, nil
	}

	m, getErr := o.store.GetEmbeddingModel(ctx, *modelID)
	if getErr != nil {
		return "", "", "", nil, apperr.NotFound("model %d not found", *modelID)
	}
	if !m.IsActive {
		return "", "", "", nil, apperr.Validation("model %d is not active", *modelID)
	}
	emb, err = o.resolveEmbedder(m.Provider, m.Model)
	if err != nil {
		return "", "", "", nil, apperr.Wrap(apperr.KindUpstream, err, "failed to build embedder for model %d", *modelID)
	}
	return m.Collection, m.Provider, m.Model, emb, nil
}

// warnOnCollectionMismatch implements spec.md §4.2 step 3: a recorded
// vs. active provider/model disagreement is logged, never fatal.
func (o *Orchestrator) warnOnCollectionMismatch(ctx context.Context, collection, provider, model string) {
	meta, err := o.vs.GetCollection(ctx, collection)
	if err != nil {
		return
	}
	if meta.EmbeddingProvider != "" && meta.EmbeddingProvider != provider ||
		meta.EmbeddingModel != "" && meta.EmbeddingModel != model {
		slog.Warn("collection embedding metadata disagrees with active model",
			"collection", collection, "collection_provider", meta.EmbeddingProvider, "collection_model", meta.EmbeddingModel,
			"active_provider", provider, "active_model", model)
	}
}

// queryNearestNeighbours implements spec.md §4.2 step 4: an explicit
// model_id always embeds client-side; the default path tries the
// store's native text-query first, falling back to explicit embedding
// only on ErrNoEmbeddingFunction.
func (o *Orchestrator) queryNearestNeighbours(ctx context.Context, collection, query string, forceEmbed bool, emb embedders.Embedder, nResults int) ([]vectorstore.Hit, error) {
	if !forceEmbed {
		hits, err := o.vs.Query(ctx, collection, vectorstore.QueryRequest{Texts: []string{query}, NResults: nResults})
		if err == nil {
			return hits, nil
		}
		if err != vectorstore.ErrNoEmbeddingFunction {
			return nil, apperr.Upstream(err, "vector store query failed")
		}
	}

	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Upstream(err, "embedding generation failed")
	}
	hits, err := o.vs.Query(ctx, collection, vectorstore.QueryRequest{Embeddings: [][]float32{vec}, NResults: nResults})
	if err != nil {
		return nil, apperr.Upstream(err, "vector store query failed")
	}
	return hits, nil
}

// expandContext implements spec.md §4.2 step 6, mutating results in
// place.
func (o *Orchestrator) expandContext(ctx context.Context, collection string, results []ResultDTO) {
	for i := range results {
		r := &results[i]
		if truthy(r.Metadata["page_level"]) {
			continue
		}
		if full, ok := r.Metadata["paragraph_full_text"].(string); ok && full != "" {
			r.Text = full
			continue
		}

		bookID := r.Metadata["book_id"]
		pageID := r.Metadata["page_id"]
		paraIdx := r.Metadata["paragraph_index"]
		if bookID == nil || pageID == nil || paraIdx == nil {
			continue
		}

		hits, err := o.vs.Get(ctx, collection, vectorstore.GetRequest{Where: map[string]interface{}{
			"book_id": bookID, "page_id": pageID, "paragraph_index": paraIdx,
		}})
		if err != nil || len(hits) == 0 {
			continue
		}
		sort.Slice(hits, func(a, b int) bool {
			return segmentIndex(hits[a]) < segmentIndex(hits[b])
		})
		parts := make([]string, len(hits))
		for j, h := range hits {
			parts[j] = h.Document
		}
		r.Text = strings.Join(parts, " ")
	}
}

func segmentIndex(h vectorstore.Hit) int {
	switch v := h.Metadata["segment_index"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func truthy(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func toResultDTO(h vectorstore.Hit) ResultDTO {
	return ResultDTO{
		DocumentID: h.ID,
		Text:       h.Document,
		Score:      h.Score(),
		Distance:   h.Distance,
		Metadata:   h.Metadata,
	}
}

// saveHistory implements spec.md §4.2 step 8: best-effort, never fails
// the enclosing request.
func (o *Orchestrator) saveHistory(ctx context.Context, query, collection, provider, model string, resultCount int) {
	if _, err := o.store.SaveSearch(ctx, store.SearchHistoryEntry{
		Query: query, ResultCount: resultCount, Collection: collection, Provider: provider, Model: model,
	}); err != nil {
		slog.Warn("failed to save search history", "error", err)
	}
	if err := o.store.UpdateQuerySearchCount(ctx, query); err != nil {
		slog.Warn("failed to update query search count", "error", err)
	}
}

// responseTTL returns the configured single-model cache TTL. It lives
// here rather than in pkg/config, since only the search orchestrator
// needs it as a time.Duration.
func responseTTL(c *config.ResponseConfig) time.Duration {
	return time.Duration(c.SearchCacheTTLSeconds) * time.Second
}
