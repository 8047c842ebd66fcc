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

// Package cache is the keyed response cache fronting the search
// orchestrator: a Redis-backed store of JSON-encoded response DTOs with
// a TTL, grounded on tas-agent-builder's cache_service_impl.go (the one
// non-teacher repo in the pack with a remote-cache concern).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chromasearch/searchsvc/pkg/config"
)

// Client is a keyed response cache with TTL. Reads tolerate decode
// errors by treating the entry as a miss; writes never fail the request
// (spec.md §4.8) — Set returns its error so the caller can log it and
// carry on.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New builds a Client from CacheConfig. The connection is lazy: Redis
// errors surface on the first Get/Set call, not at construction, so a
// transient Redis outage never blocks process startup.
func New(cfg *config.CacheConfig) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.KeyPrefix,
	}
}

// NewFromClient wraps an already-constructed redis.Client, used by
// tests to inject a miniredis-backed instance.
func NewFromClient(rdb *redis.Client, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix}
}

func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Ping checks Redis reachability, used by the /health endpoint's
// best-effort sub-checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Get decodes the JSON value stored at key into dst. It returns
// (false, nil) on a cache miss OR a malformed cached entry (which is
// deleted so it can't poison future reads) — callers never see a decode
// error, only a miss.
func (c *Client) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.rdb.Del(ctx, c.key(key))
		return false, nil
	}
	return true, nil
}

// Set writes v JSON-encoded under key with the given TTL. Errors are
// returned to the caller for logging but must never fail the enclosing
// request — spec.md §4.8 and §7's recovery policy make cache writes
// best-effort.
func (c *Client) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection, per spec.md §5's
// "the cache client is explicitly closed on shutdown".
func (c *Client) Close() error {
	return c.rdb.Close()
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeQuery trims, collapses internal whitespace, and lowercases a
// query string before hashing, per spec.md §4.2 step 2.
func NormalizeQuery(query string) string {
	return whitespaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// contextTag renders the include_full_context flag as the "ctx"/"seg"
// suffix spec.md §4.2's key scheme names.
func contextTag(includeFullContext bool) string {
	if includeFullContext {
		return "ctx"
	}
	return "seg"
}

// SearchKey builds the single-model search cache key from spec.md §4.2
// step 2: "search:<sha256(normalized-query)>:<provider>:<model>:
// <collection>:k<top_k>:p<page>:ps<page_size>:<ctx|seg>".
func SearchKey(query, provider, model, collection string, topK, page, pageSize int, includeFullContext bool) string {
	return fmt.Sprintf("search:%s:%s:%s:%s:k%d:p%d:ps%d:%s",
		hashQuery(query), provider, model, collection, topK, page, pageSize, contextTag(includeFullContext))
}

// MultiSearchKey builds the multi-model search cache key from spec.md
// §4.3 step 2: "multi-search:<sha256(normalized-query)>:<sorted-ids-csv>:k<top_k>".
func MultiSearchKey(query string, sortedModelIDsCSV string, topK int) string {
	return fmt.Sprintf("multi-search:%s:%s:k%d", hashQuery(query), sortedModelIDsCSV, topK)
}
