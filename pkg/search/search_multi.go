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
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chromasearch/searchsvc/pkg/apperr"
	"github.com/chromasearch/searchsvc/pkg/cache"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// multiSearchCacheTTL is the fixed 24-hour TTL spec.md §4.3 step 2
// assigns to merged multi-model responses, independent of the
// single-model SearchCacheTTLSeconds setting.
const multiSearchCacheTTL = 24 * time.Hour

// MultiRequest is the POST /search/multi payload.
type MultiRequest struct {
	Query    string  `json:"query"`
	ModelIDs []int64 `json:"model_ids"`
	TopK     int     `json:"top_k"`
	Save     bool    `json:"save"`
}

// ModelError records one model's failure to contribute to a multi-model
// search, keyed by (collection, model, error) per spec.md §4.3 step 3.
type ModelError struct {
	Collection string `json:"collection"`
	Model      string `json:"model"`
	Error      string `json:"error"`
}

// MultiResponse is the POST /search/multi result envelope.
type MultiResponse struct {
	Query       string       `json:"query"`
	Results     []ResultDTO  `json:"results"`
	CacheSource string       `json:"cache_source"`
	Errors      []ModelError `json:"errors,omitempty"`
}

func dedupePreserveOrder(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (r *MultiRequest) validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return apperr.Validation("query must not be empty")
	}
	if len(r.ModelIDs) < 1 || len(r.ModelIDs) > 3 {
		return apperr.Validation("model_ids must contain between 1 and 3 entries")
	}
	if r.TopK < 1 || r.TopK > 50 {
		return apperr.Validation("top_k must be between 1 and 50")
	}
	return nil
}

// SearchMulti runs the multi-model contract of spec.md §4.3.
func (o *Orchestrator) SearchMulti(ctx context.Context, req MultiRequest) (*MultiResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	modelIDs := dedupePreserveOrder(req.ModelIDs)

	models := make([]*store.EmbeddingModel, len(modelIDs))
	for i, id := range modelIDs {
		m, err := o.store.GetEmbeddingModel(ctx, id)
		if err != nil {
			return nil, apperr.NotFound("model %d not found", id)
		}
		if !m.IsActive {
			return nil, apperr.Validation("model %d is not active", id)
		}
		models[i] = m
	}

	cacheKey := cache.MultiSearchKey(req.Query, sortedIDsCSV(modelIDs), req.TopK)
	if o.cache != nil {
		var cached MultiResponse
		if hit, _ := o.cache.Get(ctx, cacheKey, &cached); hit {
			cached.CacheSource = "cache"
			return &cached, nil
		}
	}

	modelCount := len(models)
	perModelLimit := int(math.Ceil(20.0 / float64(modelCount)))
	fetchN := perModelLimit
	if req.TopK > fetchN {
		fetchN = req.TopK
	}
	if fetchN > o.resp.MaxEstimatedResults {
		fetchN = o.resp.MaxEstimatedResults
	}

	var (
		perModel []modelResults
		errs     []ModelError
		savable  []*store.EmbeddingModel
	)
	for _, m := range models {
		hits, err := o.fetchModelResults(ctx, m, req.Query, fetchN)
		if err != nil {
			errs = append(errs, ModelError{Collection: m.Collection, Model: m.Model, Error: err.Error()})
			continue
		}
		perModel = append(perModel, modelResults{modelID: m.ID, results: hits})
		savable = append(savable, m)
	}

	if len(perModel) == 0 {
		msg := "all models failed"
		if len(errs) > 0 {
			msg = errs[0].Error
		}
		return nil, apperr.Upstream(fmt.Errorf("%s", msg), "multi-model search failed")
	}

	overallLimit := clamp(perModelLimit*modelCount, 1, 20)
	merged := roundRobinMerge(perModel, overallLimit)

	resp := &MultiResponse{
		Query:       req.Query,
		Results:     merged,
		CacheSource: "realtime",
		Errors:      errs,
	}

	if req.Save && o.store != nil {
		for _, m := range savable {
			if _, err := o.store.SaveSearch(ctx, store.SearchHistoryEntry{
				Query: req.Query, ResultCount: len(merged), Collection: m.Collection, Provider: m.Provider, Model: m.Model,
			}); err != nil {
				slog.Warn("failed to save multi-model search history", "error", err, "model_id", m.ID)
			}
		}
		if err := o.store.UpdateQuerySearchCount(ctx, req.Query); err != nil {
			slog.Warn("failed to update query search count", "error", err)
		}
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, cacheKey, resp, multiSearchCacheTTL); err != nil {
			slog.Warn("failed to cache multi-model search response", "error", err)
		}
	}

	return resp, nil
}

// fetchModelResults resolves one model's embedder, embeds the query, and
// queries its collection — spec.md §4.3 step 3's per-model fetch.
func (o *Orchestrator) fetchModelResults(ctx context.Context, m *store.EmbeddingModel, query string, fetchN int) ([]ResultDTO, error) {
	o.warnOnCollectionMismatch(ctx, m.Collection, m.Provider, m.Model)

	emb, err := o.resolveEmbedder(m.Provider, m.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to build embedder: %w", err)
	}
	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	hits, err := o.vs.Query(ctx, m.Collection, vectorstore.QueryRequest{Embeddings: [][]float32{vec}, NResults: fetchN})
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}
	out := make([]ResultDTO, len(hits))
	for i, h := range hits {
		out[i] = toResultDTO(h)
	}
	return out, nil
}

func sortedIDsCSV(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
