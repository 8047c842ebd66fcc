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

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/embedders"
	"github.com/chromasearch/searchsvc/pkg/ingest"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// IngestCmd runs one SQL-dump-to-vector-store ingest job, mirroring the
// original exporter CLI's flags.
type IngestCmd struct {
	DumpFile string `arg:"" help:"Path to the book_pages SQL dump." type:"existingfile"`

	Collection        string  `help:"Target collection name." default:"book_pages"`
	Provider          string  `help:"Embedding provider (openai, gemini, huggingface, none)."`
	Model             string  `help:"Embedding model name."`
	MaxLength         int     `name:"max-length" help:"Maximum characters per segment." default:"800"`
	ContextLength     int     `name:"context-length" help:"Characters of overlap between consecutive segments of a paragraph." default:"100"`
	MinParagraphLines int     `name:"min-paragraph-lines" help:"Minimum consecutive lines to merge into one paragraph." default:"3"`
	TitleWeight       float64 `name:"title-weight" help:"Weight multiplier applied to a page's title text." default:"1.5"`
	BatchSize         int     `name:"batch-size" help:"Documents per embedding batch." default:"100"`
	IncludePageLevel  bool    `name:"include-page-level" help:"Also store one document per whole page, in addition to segments."`
	Reset             bool    `help:"Delete and recreate the collection before ingesting."`
	RecordLimit       int     `name:"record-limit" help:"Stop after this many source records (0 = unlimited)."`
	Workers           int     `help:"Embedding worker pool size." default:"4"`
}

// Run opens the dump file, wires a Pipeline against the configured
// vector store and embedder, and executes it to completion.
func (c *IngestCmd) Run(cli *CLI) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	f, err := os.Open(c.DumpFile)
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	defer f.Close()

	vs, err := vectorstore.NewChromaClient(cfg.VectorStore)
	if err != nil {
		return fmt.Errorf("failed to build vector store client: %w", err)
	}
	defer vs.Close()

	ctx := context.Background()
	if err := vs.Heartbeat(ctx); err != nil {
		return fmt.Errorf("chroma heartbeat failed: %w", err)
	}

	var embedder embedders.Embedder
	if c.Provider != "" && c.Provider != "none" {
		embCfg, ok := cfg.GetEmbedder(c.Provider)
		if !ok {
			embCfg = &config.EmbedderConfig{Provider: c.Provider, Model: c.Model}
		} else if c.Model != "" {
			embCfg.Model = c.Model
		}
		reg := embedders.NewRegistry()
		embedder, err = reg.CreateFromConfig("ingest", embCfg)
		if err != nil {
			return fmt.Errorf("failed to build embedder: %w", err)
		}
		defer embedder.Close()
	}

	pool := config.NewDBPool()
	defer pool.Close()
	st, err := store.Open(pool, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	pipeline := &ingest.Pipeline{VS: vs, Embedder: embedder, Store: st}

	opts := ingest.Options{
		Collection:        c.Collection,
		Provider:          c.Provider,
		Model:             c.Model,
		MaxLength:         c.MaxLength,
		ContextLength:     c.ContextLength,
		MinParagraphLines: c.MinParagraphLines,
		TitleWeight:       c.TitleWeight,
		BatchSize:         c.BatchSize,
		IncludePageLevel:  c.IncludePageLevel,
		Reset:             c.Reset,
		RecordLimit:       c.RecordLimit,
		Workers:           c.Workers,
		CommandArgs:       fmt.Sprintf("%v", os.Args[1:]),
	}

	result, err := pipeline.Run(ctx, f, opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	log.Printf("ingest complete: job=%d collection=%s records=%d books=%d segments=%d documents_in_collection=%d",
		result.JobID, result.Collection, result.TotalRecords, result.TotalBooks, result.TotalSegments, result.TotalDocumentsInCollection)
	if err := st.SyncEmbeddingModelsFromJobs(ctx, 50); err != nil {
		log.Printf("warning: failed to sync embedding models from jobs: %v", err)
	}
	return nil
}
