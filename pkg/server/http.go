// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server is the HTTP edge: routing, CORS, the combined
// auth+rate-limit middleware, request decoding/response encoding, and
// error mapping, grounded on the teacher's pkg/server/http.go
// (HTTPServer struct, setupRoutes/corsMiddleware/Start/Shutdown shape)
// but carrying spec.md's search/admin routes instead of A2A's agent
// routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chromasearch/searchsvc/pkg/apperr"
	"github.com/chromasearch/searchsvc/pkg/auth"
	"github.com/chromasearch/searchsvc/pkg/cache"
	"github.com/chromasearch/searchsvc/pkg/config"
	"github.com/chromasearch/searchsvc/pkg/search"
	"github.com/chromasearch/searchsvc/pkg/store"
	"github.com/chromasearch/searchsvc/pkg/vectorstore"
)

// HTTPServer is the search service's HTTP server.
type HTTPServer struct {
	serverCfg *config.ServerConfig
	appCfg    *config.Config

	orchestrator *search.Orchestrator
	store        *store.Store
	authMW       *auth.Middleware
	vs           vectorstore.Client
	cache        *cache.Client

	server *http.Server
}

// NewHTTPServer builds the HTTP server, wiring the search orchestrator
// and persistence layer the teacher's NewHTTPServer wires per-agent
// executors.
func NewHTTPServer(appCfg *config.Config, orch *search.Orchestrator, st *store.Store, authMW *auth.Middleware, vs vectorstore.Client, cacheClient *cache.Client) *HTTPServer {
	serverCfg := &appCfg.Server
	return &HTTPServer{
		serverCfg:    serverCfg,
		appCfg:       appCfg,
		orchestrator: orch,
		store:        st,
		authMW:       authMW,
		vs:           vs,
		cache:        cacheClient,
	}
}

// Address returns the HTTP listen address.
func (s *HTTPServer) Address() string { return s.serverCfg.Addr() }

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully. Mirrors the teacher's Start: build mux, wrap in the
// middleware chain, race ListenAndServe against ctx.Done().
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := s.setupRoutes()

	var handler http.Handler = mux
	if s.authMW != nil {
		handler = s.authMW.Wrap(handler)
	}
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)

	s.server = &http.Server{
		Addr:         s.serverCfg.Addr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", s.serverCfg.Addr())

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tlsCfg := s.serverCfg.TLS; tlsCfg != nil && config.BoolValue(tlsCfg.Enabled, false) {
			err = s.server.ListenAndServeTLS(tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server, bounded by serverCfg.ShutdownTimeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	timeout := s.serverCfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

// setupRoutes configures the service's routes.
func (s *HTTPServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search/multi", s.handleSearchMulti)
	mux.HandleFunc("/search/vote", s.handleVote)

	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/top", s.handleHistoryTop)
	mux.HandleFunc("/history/", s.handleHistoryByID)

	mux.HandleFunc("/approved-queries", s.handleApprovedQueries)
	mux.HandleFunc("/models/active", s.handleModelsActive)

	if s.serverCfg.StaticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.serverCfg.StaticDir))))
	}

	s.registerAdminRoutes(mux)

	return mux
}

// corsMiddleware adds CORS headers per serverCfg.CORS, falling back to
// the teacher's permissive-by-default posture when CORS is unset.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	cors := s.serverCfg.CORS
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if cors != nil {
			for _, allowed := range cors.AllowedOrigins {
				if allowed == "*" {
					w.Header().Set("Access-Control-Allow-Origin", "*")
					break
				}
				if allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ", "))
			if cors.AllowCredentials != nil && *cors.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs request duration at DEBUG. Deliberately does
// not wrap the ResponseWriter, matching the teacher's note that doing
// so would break http.Flusher for any future streaming endpoint.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// ---- response helpers ----

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps err onto the HTTP status/body contract the search
// and admin handlers share.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		slog.Error("unhandled internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]interface{}{"code": "internal_error", "message": "internal error"},
		})
		return
	}
	if appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindUpstream {
		slog.Error("request failed", "kind", appErr.Kind.String(), "error", appErr.Error())
	}
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    appErr.Kind.String(),
			"message": appErr.Message,
		},
	}
	if appErr.Kind == apperr.KindRateLimit {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds))
		body["retry_after_seconds"] = appErr.RetryAfterSeconds
	}
	writeJSON(w, appErr.HTTPStatus(), body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("malformed JSON body: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ---- handlers ----

// handleHealth answers GET /health with probe results for the
// downstream dependencies. Probes are best-effort: a failing
// dependency degrades the status field rather than failing the
// request outright.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	chromaStatus := "ok"
	if err := s.vs.Heartbeat(r.Context()); err != nil {
		chromaStatus = "unreachable"
		status = "degraded"
	}
	redisStatus := "disabled"
	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			redisStatus = "unreachable"
			status = "degraded"
		} else {
			redisStatus = "ok"
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"chroma":     chromaStatus,
		"collection": s.appCfg.VectorStore.Collection,
		"redis":      redisStatus,
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req search.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.orchestrator.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleSearchMulti(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req search.MultiRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.orchestrator.SearchMulti(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// voteRequest is the POST /search/vote payload.
type voteRequest struct {
	GuestUserID string  `json:"guest_user_id"`
	Query       string  `json:"query"`
	VoteType    string  `json:"vote_type"`
	ModelID     *int64  `json:"model_id,omitempty"`
	ResultID    *string `json:"result_id,omitempty"`
}

func (s *HTTPServer) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.GuestUserID) < 8 {
		writeError(w, apperr.Validation("guest_user_id must be at least 8 characters"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, apperr.Validation("query must not be empty"))
		return
	}
	voteType := store.VoteType(req.VoteType)
	if voteType != store.VoteLike && voteType != store.VoteDislike {
		writeError(w, apperr.Validation("vote_type must be 'like' or 'dislike'"))
		return
	}

	vote := store.SearchVote{
		GuestUserID: req.GuestUserID,
		Query:       req.Query,
		ModelID:     req.ModelID,
		ResultID:    req.ResultID,
		VoteType:    voteType,
	}
	if err := s.store.SaveSearchVote(r.Context(), vote); err != nil {
		writeError(w, apperr.Internal("failed to save vote: %v", err))
		return
	}
	stats, err := s.store.GetVoteStats(r.Context(), req.Query, req.ModelID, req.ResultID)
	if err != nil {
		writeError(w, apperr.Internal("failed to read vote stats: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"likes":    stats.Likes,
		"dislikes": stats.Dislikes,
	})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/history" {
		s.handleHistoryByID(w, r)
		return
	}
	limit := clampInt(queryInt(r, "limit", 20), 1, 100)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.store.GetSearchHistory(r.Context(), limit, offset, nil)
	if err != nil {
		writeError(w, apperr.Internal("failed to read search history: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": entries,
		"total": total,
	})
}

func (s *HTTPServer) handleHistoryTop(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", 10), 1, 100)
	minCount := queryInt(r, "min_count", 1)
	if minCount < 1 {
		minCount = 1
	}
	top, err := s.store.GetTopQueries(r.Context(), limit, minCount)
	if err != nil {
		writeError(w, apperr.Internal("failed to read top queries: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// handleHistoryByID answers GET /history/{id}: the raw results_json
// blob for a single saved search.
func (s *HTTPServer) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/history/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("invalid history id %q", idStr))
		return
	}
	resultsJSON, err := s.store.GetSearchResults(r.Context(), id)
	if err != nil {
		writeError(w, apperr.NotFound("history entry %d not found", id))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(resultsJSON))
}

// handleApprovedQueries answers GET /approved-queries. When
// ShowApprovedQueries is disabled it returns an empty list rather than
// 404.
func (s *HTTPServer) handleApprovedQueries(w http.ResponseWriter, r *http.Request) {
	resp := &s.appCfg.Response
	if !resp.ShowApprovedQueries {
		writeJSON(w, http.StatusOK, []store.QueryApproval{})
		return
	}
	queries, err := s.store.ListApprovedQueries(r.Context(), resp.ApprovedQueriesMinCount, resp.ApprovedQueriesLimit)
	if err != nil {
		writeError(w, apperr.Internal("failed to list approved queries: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, queries)
}

// handleModelsActive answers GET /models/active with every embedding
// model currently marked active, for clients building a model picker.
func (s *HTTPServer) handleModelsActive(w http.ResponseWriter, r *http.Request) {
	models, err := s.store.ListEmbeddingModels(r.Context())
	if err != nil {
		writeError(w, apperr.Internal("failed to list embedding models: %v", err))
		return
	}
	active := make([]store.EmbeddingModel, 0, len(models))
	for _, m := range models {
		if m.IsActive {
			active = append(active, m)
		}
	}
	writeJSON(w, http.StatusOK, active)
}
