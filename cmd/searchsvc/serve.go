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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chromasearch/searchsvc/pkg/auth"
	"github.com/chromasearch/searchsvc/pkg/cache"
	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/embedders"
	"github.com/chromasearch/searchsvc/pkg/search"
	"github.com/chromasearch/searchsvc/pkg/server"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// ServeCmd starts the search HTTP server.
type ServeCmd struct {
	Host string `help:"Override the configured HTTP host."`
	Port int    `help:"Override the configured HTTP port."`
}

// Run loads configuration, wires every dependency (vector store,
// embedders, cache, database, auth), runs the startup probes, and
// serves until interrupted.
func (c *ServeCmd) Run(cli *CLI) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	printStartupSummary(cfg)

	vs, err := vectorstore.NewChromaClient(cfg.VectorStore)
	if err != nil {
		return fmt.Errorf("failed to build vector store client: %w", err)
	}
	defer vs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Startup probes: Chroma reachability is load-bearing (fail-hard);
	// everything else degrades gracefully, matching the original
	// service's web_service startup checks.
	if err := vs.Heartbeat(ctx); err != nil {
		return fmt.Errorf("chroma heartbeat failed: %w", err)
	}
	if _, err := vs.GetCollection(ctx, cfg.VectorStore.Collection); err != nil {
		slog.Warn("default collection not found at startup", "collection", cfg.VectorStore.Collection, "error", err)
	}

	var cacheClient *cache.Client
	if cfg.Cache.IsEnabled() {
		cacheClient = cache.New(&cfg.Cache)
		if err := cacheClient.Ping(ctx); err != nil {
			slog.Warn("cache unreachable at startup, continuing without it", "error", err)
			_ = cacheClient.Close()
			cacheClient = nil
		}
	}

	registry := embedders.NewRegistry()
	if len(cfg.Embedders) == 0 {
		slog.Warn("no embedders configured; query-side embedding will fail for collections without a server-side embedding function")
	} else if err := registry.LoadAll(cfg.Embedders); err != nil {
		return fmt.Errorf("failed to initialize embedders: %w", err)
	}

	pool := config.NewDBPool()
	defer pool.Close()
	st, err := store.Open(pool, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	orch := search.New(cfg, vs, registry, cacheClient, st)

	var authMW *auth.Middleware
	if cfg.Auth.IsEnabled() {
		authMW = auth.New(&cfg.Auth, &cfg.RateLimiting, st)
	}

	httpServer := server.NewHTTPServer(cfg, orch, st, authMW, vs, cacheClient)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("searchsvc listening on %s", httpServer.Address())
	return httpServer.Start(sigCtx)
}

// printStartupSummary logs the effective configuration, masking
// credential-bearing fields, before the server starts serving traffic.
func printStartupSummary(cfg *config.Config) {
	mask := func(secret string) string {
		if secret == "" {
			return "(not set)"
		}
		return "***SET***"
	}
	slog.Info("starting searchsvc",
		"server_addr", cfg.Server.Addr(),
		"vector_store", cfg.VectorStore.BaseURL(),
		"vector_store_api_key", mask(cfg.VectorStore.APIKey),
		"default_collection", cfg.VectorStore.Collection,
		"database_driver", cfg.Database.Driver,
		"cache_enabled", cfg.Cache.IsEnabled(),
		"auth_enabled", cfg.Auth.IsEnabled(),
		"rate_limiting_enabled", cfg.RateLimiting.IsEnabled(),
		"embedder_count", len(cfg.Embedders),
	)
}
