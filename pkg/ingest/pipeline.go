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

// Package ingest implements the book_pages SQL-dump-to-vector-store
// ingest pipeline: parsing, HTML stripping, paragraph extraction and
// merging, overlapping-window chunking, batched embedding, and upsert.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/chromasearch/searchsvc/pkg/embedders"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// Options configures one ingest run. It mirrors the original exporter
// CLI's flags (spec.md §4.6/§6), passed straight through from
// cmd/searchsvc's ingest subcommand.
type Options struct {
	Collection        string
	Provider          string
	Model             string
	MaxLength         int
	ContextLength     int
	MinParagraphLines int
	TitleWeight       float64
	BatchSize         int
	IncludePageLevel  bool
	Reset             bool
	RecordLimit       int // 0 means unlimited
	Workers           int // embedding worker pool size, 0 defaults to 4
	CommandArgs       string
}

// SetDefaults fills in the zero-value fields with the original
// exporter's defaults.
func (o *Options) SetDefaults() {
	if o.MaxLength == 0 {
		o.MaxLength = 800
	}
	if o.ContextLength == 0 {
		o.ContextLength = 100
	}
	if o.MinParagraphLines == 0 {
		o.MinParagraphLines = 3
	}
	if o.TitleWeight == 0 {
		o.TitleWeight = 1.5
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.Workers == 0 {
		o.Workers = 4
	}
}

// Result summarizes a completed ingest run.
type Result struct {
	JobID                      int64
	Collection                 string
	TotalRecords               int
	TotalBooks                 int
	TotalSegments              int
	TotalDocumentsInCollection int
}

// Pipeline drives one ingest run: reading the SQL dump, segmenting
// book pages, embedding, and upserting into the vector store, while
// tracking progress through an ExportJob row.
type Pipeline struct {
	VS       vectorstore.Client
	Embedder embedders.Embedder // nil for provider "none"
	Store    *store.Store

	workers int
}

// Run executes the full pipeline against r (the opened SQL dump),
// per spec.md §4.6's "Batching"/"Progress & job tracking" steps.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	opts.SetDefaults()
	p.workers = opts.Workers

	collection, err := p.resolveCollectionName(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target collection: %w", err)
	}

	if err := p.VS.CreateCollection(ctx, collection, vectorstore.CollectionMetadata{
		Source:            "book_pages_sql_export",
		MaxLength:         opts.MaxLength,
		ContextLength:     opts.ContextLength,
		MinParagraphLines: opts.MinParagraphLines,
		TitleWeight:       opts.TitleWeight,
		EmbeddingProvider: opts.Provider,
		EmbeddingModel:    opts.Model,
	}); err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", collection, err)
	}

	jobID, err := p.Store.CreateExportJob(ctx, store.ExportJob{
		Collection:        collection,
		Provider:          opts.Provider,
		Model:             opts.Model,
		MaxLength:         opts.MaxLength,
		ContextLength:     opts.ContextLength,
		MinParagraphLines: opts.MinParagraphLines,
		TitleWeight:       opts.TitleWeight,
		CommandArgs:       opts.CommandArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create export job: %w", err)
	}

	heuristic := DefaultTitleHeuristic()
	chunkParams := ChunkParams{MaxLength: opts.MaxLength, ContextLength: opts.ContextLength, TitleWeight: opts.TitleWeight, IncludePageLevel: opts.IncludePageLevel}

	var (
		totalRecords  int
		totalSegments int
		books         = map[int64]bool{}
		batch         []Segment
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.embedAndUpsert(ctx, collection, batch); err != nil {
			return err
		}
		totalSegments += len(batch)
		batch = nil
		slog.Info("ingest progress", "collection", collection, "records", totalRecords, "segments", totalSegments)
		return nil
	}

	scanErr := ScanBookPages(r, func(page BookPage) error {
		if opts.RecordLimit > 0 && totalRecords >= opts.RecordLimit {
			return errRecordLimitReached
		}
		totalRecords++
		books[page.BookID] = true

		text := htmlToText(page.PageTextHTML)
		paragraphs := prepareParagraphs(text, opts.MinParagraphLines, heuristic)
		segments := buildSegments(page, text, paragraphs, chunkParams)
		batch = append(batch, segments...)

		if len(batch) >= opts.BatchSize {
			return flush()
		}
		return nil
	})
	if scanErr != nil && scanErr != errRecordLimitReached {
		_ = p.Store.FailExportJob(ctx, jobID, scanErr.Error())
		return nil, fmt.Errorf("ingest failed while scanning dump: %w", scanErr)
	}
	if err := flush(); err != nil {
		_ = p.Store.FailExportJob(ctx, jobID, err.Error())
		return nil, err
	}

	docCount, err := p.VS.Count(ctx, collection)
	if err != nil {
		slog.Warn("failed to count collection documents after ingest", "collection", collection, "error", err)
	}

	if err := p.Store.CompleteExportJob(ctx, jobID, totalRecords, len(books), totalSegments, docCount); err != nil {
		return nil, fmt.Errorf("failed to mark export job complete: %w", err)
	}

	return &Result{
		JobID:                      jobID,
		Collection:                 collection,
		TotalRecords:               totalRecords,
		TotalBooks:                 len(books),
		TotalSegments:              totalSegments,
		TotalDocumentsInCollection: docCount,
	}, nil
}

var errRecordLimitReached = fmt.Errorf("record limit reached")

// resolveCollectionName implements spec.md §4.5's collection-naming
// rule: reset drops the existing collection (tolerating "not found");
// otherwise, a name collision is resolved by writing to a
// timestamp-suffixed variant and logging a warning rather than
// silently overwriting live search traffic.
func (p *Pipeline) resolveCollectionName(ctx context.Context, opts Options) (string, error) {
	if opts.Reset {
		if err := p.VS.DeleteCollection(ctx, opts.Collection); err != nil {
			slog.Warn("failed to delete collection before reset (ignoring)", "collection", opts.Collection, "error", err)
		}
		return opts.Collection, nil
	}

	_, err := p.VS.GetCollection(ctx, opts.Collection)
	if err == vectorstore.ErrCollectionNotFound {
		return opts.Collection, nil
	}
	if err != nil {
		return "", err
	}

	suffixed := fmt.Sprintf("%s_%s", opts.Collection, time.Now().UTC().Format("20060102_150405"))
	slog.Warn("target collection already exists, writing to a timestamped variant instead",
		"collection", opts.Collection, "variant", suffixed)
	return suffixed, nil
}

// embedAndUpsert computes embeddings for one batch (skipped entirely
// for provider "none", where the collection owns its own embedding
// function) and writes it to the vector store.
func (p *Pipeline) embedAndUpsert(ctx context.Context, collection string, batch []Segment) error {
	ids := make([]string, len(batch))
	documents := make([]string, len(batch))
	metadatas := make([]map[string]interface{}, len(batch))
	for i, seg := range batch {
		ids[i] = seg.DocumentID
		documents[i] = seg.Text
		metadatas[i] = seg.Metadata
	}

	var embeddings [][]float32
	if p.Embedder != nil {
		vecs, err := p.embedConcurrently(ctx, documents)
		if err != nil {
			return fmt.Errorf("failed to embed batch: %w", err)
		}
		embeddings = vecs
	}

	if err := p.VS.Upsert(ctx, collection, ids, documents, embeddings, metadatas); err != nil {
		return fmt.Errorf("failed to upsert batch into %q: %w", collection, err)
	}
	return nil
}

// embedConcurrently fans batches of texts across a small worker pool
// so a slow provider round-trip doesn't serialize the whole ingest
// run — the bounded-goroutine replacement spec.md §9's open question
// calls for in place of the original's double ProcessPoolExecutor.
func (p *Pipeline) embedConcurrently(ctx context.Context, texts []string) ([][]float32, error) {
	const subBatch = 16
	chunks := chunkStrings(texts, subBatch)

	results := make([][][]float32, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workerCount())
	for i, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, chunk []string) {
			defer wg.Done()
			defer func() { <-sem }()
			vecs, err := p.Embedder.EmbedBatch(ctx, chunk)
			results[i] = vecs
			errs[i] = err
		}(i, chunk)
	}
	wg.Wait()

	var out [][]float32
	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		out = append(out, results[i]...)
	}
	return out, nil
}

func (p *Pipeline) workerCount() int {
	if p.workers > 0 {
		return p.workers
	}
	return 4
}

func chunkStrings(items []string, size int) [][]string {
	var out [][]string
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	out = append(out, items)
	return out
}
