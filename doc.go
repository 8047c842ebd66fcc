// Package searchsvc is a semantic search service over a book-page
// corpus: a Chroma-compatible vector store for similarity search, a
// pluggable embedding layer (OpenAI, Gemini, a self-hosted HuggingFace
// endpoint, or none), a SQL-backed persistence layer for search
// history/votes/query-approvals/API tokens, and an HTTP edge exposing
// both the public search API and an operator admin surface.
//
// # Quick Start
//
// Install searchsvc:
//
//	go install github.com/chromasearch/searchsvc/cmd/searchsvc@latest
//
// Start the server against a running Chroma instance:
//
//	searchsvc serve --config searchsvc.yaml
//
// Ingest a book_pages SQL dump into the vector store:
//
//	searchsvc ingest dump.sql --collection book_pages --provider openai
//
// # Using as a Go library
//
// Import specific packages directly:
//
//	import (
//	    "github.com/chromasearch/searchsvc/pkg/search"
//	    "github.com/chromasearch/searchsvc/pkg/vectorstore"
//	    "github.com/chromasearch/searchsvc/pkg/config"
//	)
//
// # Architecture
//
//	Client → HTTP edge (auth + rate limit) → Search orchestrator
//	    → vector store (Chroma) + embedder + response cache
//	    → SQL store (history, votes, approvals, tokens)
//
// # License
//
// AGPL-3.0.
package searchsvc
