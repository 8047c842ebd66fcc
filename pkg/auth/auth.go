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

// Package auth implements the bearer-token authentication and per-token
// rate limiting the HTTP edge enforces in a single middleware, per
// spec.md §4.1. Tokens are never stored raw: only their SHA-256 hash is
// persisted, and the only lookup path is by hash.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/ratelimit"
	"github.com/chromasearch/searchsvc/pkg/store"
)

// HashToken returns the hex-encoded SHA-256 digest of a raw bearer token,
// the only form ever written to or read from persistence.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type contextKey struct{ name string }

var tokenContextKey = contextKey{"api_token"}

// TokenFromContext returns the authenticated token for the request, or
// nil on a public path that carried none.
func TokenFromContext(ctx context.Context) *store.ApiToken {
	t, _ := ctx.Value(tokenContextKey).(*store.ApiToken)
	return t
}

// Middleware is the combined auth+rate-limit gate described in spec.md
// §4.1: public paths pass through untouched; every other path requires
// Authorization: Bearer <token>, resolved to an active, unexpired token
// belonging to an active user, and is then subject to that token's daily
// request budget.
type Middleware struct {
	cfg      *config.AuthConfig
	rl       *config.RateLimitConfig
	store    *store.Store
	limiter  *ratelimit.Limiter
	publicPx []string
}

// New builds the middleware. cfg.PublicPaths is used as given; an empty
// list gets its default set only through config.AuthConfig.SetDefaults.
func New(cfg *config.AuthConfig, rl *config.RateLimitConfig, s *store.Store) *Middleware {
	return &Middleware{
		cfg:      cfg,
		rl:       rl,
		store:    s,
		limiter:  ratelimit.New(s),
		publicPx: cfg.PublicPaths,
	}
}

func (m *Middleware) isPublic(path string) bool {
	for _, prefix := range m.publicPx {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Wrap returns an http.Handler applying authentication and rate limiting
// around next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.cfg.IsEnabled() || m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.authenticate(r)
		if err != nil {
			writeAuthError(w, err.Error())
			return
		}

		dailyLimit := token.DailyLimit
		if !m.rl.IsEnabled() {
			dailyLimit = 0
		} else if dailyLimit == 0 {
			dailyLimit = m.rl.DefaultPerDay
		}

		result, err := m.limiter.CheckAndRecord(r.Context(), token.ID, dailyLimit)
		if err != nil {
			slog.Error("rate limit check failed", "error", err, "token_id", token.ID)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			writeRateLimitError(w, result)
			return
		}

		ctx := context.WithValue(r.Context(), tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authErr distinguishes an authentication failure (always mapped to 401)
// from the transport/internal errors that bubble up from the store.
type authErr struct{ msg string }

func (e authErr) Error() string { return e.msg }

func (m *Middleware) authenticate(r *http.Request) (*store.ApiToken, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, authErr{"missing Authorization header"}
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, authErr{"malformed Authorization header"}
	}

	token, err := m.store.GetApiTokenByHash(r.Context(), HashToken(parts[1]))
	if err != nil {
		return nil, authErr{"invalid token"}
	}
	if !token.IsActive {
		return nil, authErr{"token is inactive"}
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now().UTC()) {
		return nil, authErr{"token has expired"}
	}

	user, err := m.store.GetApiUser(r.Context(), token.UserID)
	if err != nil || !user.IsActive {
		return nil, authErr{"user is inactive"}
	}

	return token, nil
}

func addRateLimitHeaders(w http.ResponseWriter, result ratelimit.Result) {
	if result.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetEpoch, 10))
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "auth_error",
			"message": message,
		},
	})
}

func writeRateLimitError(w http.ResponseWriter, result ratelimit.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "rate_limit_error",
			"message": "daily request limit reached",
		},
		"retry_after_seconds": result.RetryAfterSeconds,
	})
}
