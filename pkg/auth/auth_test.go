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

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/store"
)

func newTestMiddleware(t *testing.T) (*Middleware, *store.Store, string) {
	t.Helper()
	s := store.OpenForTest(t)
	ctx := t.Context()

	userID, err := s.CreateApiUser(ctx, "alice")
	require.NoError(t, err)

	rawToken := "secret-token"
	_, err = s.CreateApiToken(ctx, store.ApiToken{UserID: userID, Hash: HashToken(rawToken), DailyLimit: 2})
	require.NoError(t, err)

	authCfg := &config.AuthConfig{Enabled: true}
	authCfg.SetDefaults()
	rlCfg := &config.RateLimitConfig{}
	rlCfg.SetDefaults()

	return New(authCfg, rlCfg, s), s, rawToken
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewarePublicPathBypassesAuth(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsMalformedScheme(t *testing.T) {
	m, _, token := newTestMiddleware(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsUnknownToken(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidTokenAndSetsHeaders(t *testing.T) {
	m, _, token := newTestMiddleware(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareEnforcesDailyLimit(t *testing.T) {
	m, _, token := newTestMiddleware(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		m.Wrap(okHandler()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "86400", rec.Header().Get("Retry-After"))
}

func TestMiddlewareRejectsInactiveToken(t *testing.T) {
	m, s, token := newTestMiddleware(t)
	ctx := t.Context()

	got, err := s.GetApiTokenByHash(ctx, HashToken(token))
	require.NoError(t, err)
	require.NoError(t, s.SetTokenActive(ctx, got.ID, false))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	s := store.OpenForTest(t)
	ctx := t.Context()

	userID, err := s.CreateApiUser(ctx, "carol")
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	_, err = s.CreateApiToken(ctx, store.ApiToken{UserID: userID, Hash: HashToken("expired"), DailyLimit: 10, ExpiresAt: &past})
	require.NoError(t, err)

	authCfg := &config.AuthConfig{Enabled: true}
	authCfg.SetDefaults()
	rlCfg := &config.RateLimitConfig{}
	rlCfg.SetDefaults()
	m := New(authCfg, rlCfg, s)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
