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

package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/chromasearch/searchsvc/pkg/apperr"
	"github.com/chromasearch/searchsvc/pkg/auth"
	"github.com/chromasearch/searchsvc/pkg/store"
)

// registerAdminRoutes wires the operator surface under /admin/*: export
// job visibility, query approvals, embedding model toggles, and API
// user/token management.
func (s *HTTPServer) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/jobs", s.adminListJobs)
	mux.HandleFunc("/admin/jobs/", s.adminGetJob)

	mux.HandleFunc("/admin/models", s.adminListModels)
	mux.HandleFunc("/admin/models/", s.adminModelByID)

	mux.HandleFunc("/admin/approvals", s.adminListApprovals)
	mux.HandleFunc("/admin/approvals/approve", s.adminApproveQuery)
	mux.HandleFunc("/admin/approvals/reject", s.adminRejectQuery)
	mux.HandleFunc("/admin/approvals/delete", s.adminDeleteQuery)

	mux.HandleFunc("/admin/votes", s.adminListVotes)

	mux.HandleFunc("/admin/users", s.adminUsers)
	mux.HandleFunc("/admin/tokens", s.adminTokens)
	mux.HandleFunc("/admin/tokens/", s.adminTokenByID)
}

// adminListJobs answers GET /admin/jobs, listing the most recent
// export jobs for the ingest dashboard.
func (s *HTTPServer) adminListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	limit := clampInt(queryInt(r, "limit", 50), 1, 500)
	jobs, err := s.store.ListExportJobs(r.Context(), limit)
	if err != nil {
		writeError(w, apperr.Internal("failed to list export jobs: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// adminGetJob answers GET /admin/jobs/{id}.
func (s *HTTPServer) adminGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	id, err := pathID(r, "/admin/jobs/")
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := s.store.GetExportJob(r.Context(), id)
	if err != nil {
		writeError(w, apperr.NotFound("export job %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// adminListModels answers GET /admin/models.
func (s *HTTPServer) adminListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	models, err := s.store.ListEmbeddingModels(r.Context())
	if err != nil {
		writeError(w, apperr.Internal("failed to list embedding models: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// setActiveRequest is the PUT /admin/models/{id}/active payload.
type setActiveRequest struct {
	Active bool `json:"active"`
}

type setColorRequest struct {
	Color string `json:"color"`
}

// adminModelByID handles /admin/models/{id}/active and
// /admin/models/{id}/color, toggling an embedding model's active flag
// or recoloring it for the dashboard, per spec.md §4.7.
func (s *HTTPServer) adminModelByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/models/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		writeError(w, apperr.Validation("expected /admin/models/{id}/active or .../color"))
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("invalid model id %q", parts[0]))
		return
	}

	switch parts[1] {
	case "active":
		var req setActiveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.store.SetActive(r.Context(), id, req.Active); err != nil {
			writeError(w, apperr.NotFound("%v", err))
			return
		}
	case "color":
		var req setColorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.store.UpdateColor(r.Context(), id, req.Color); err != nil {
			writeError(w, apperr.Validation("%v", err))
			return
		}
	default:
		writeError(w, apperr.NotFound("unknown model sub-resource %q", parts[1]))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// adminListApprovals answers GET /admin/approvals with every tracked
// query and its approval status, for the operator review queue.
func (s *HTTPServer) adminListApprovals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	limit := clampInt(queryInt(r, "limit", 100), 1, 1000)
	approvals, err := s.store.ListQueryApprovals(r.Context(), limit)
	if err != nil {
		writeError(w, apperr.Internal("failed to list query approvals: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, approvals)
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *HTTPServer) adminApproveQuery(w http.ResponseWriter, r *http.Request) {
	s.adminSetApproval(w, r, s.store.ApproveQuery)
}

func (s *HTTPServer) adminRejectQuery(w http.ResponseWriter, r *http.Request) {
	s.adminSetApproval(w, r, s.store.RejectQuery)
}

func (s *HTTPServer) adminDeleteQuery(w http.ResponseWriter, r *http.Request) {
	s.adminSetApproval(w, r, s.store.DeleteQuery)
}

// adminSetApproval is the shared body for the three POST
// /admin/approvals/{approve,reject,delete} endpoints, each of which
// takes {"query": "..."} and delegates to a single-query Store method.
func (s *HTTPServer) adminSetApproval(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, query string) error) {
	if r.Method != http.MethodPost {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, apperr.Validation("query must not be empty"))
		return
	}
	if err := apply(r.Context(), req.Query); err != nil {
		writeError(w, apperr.Internal("failed to update query approval: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) adminListVotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	limit := clampInt(queryInt(r, "limit", 50), 1, 500)
	summary, err := s.store.GetVoteSummary(r.Context(), limit)
	if err != nil {
		writeError(w, apperr.Internal("failed to read vote summary: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// adminUsers handles GET (list) and POST (create) on /admin/users.
func (s *HTTPServer) adminUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.store.ListApiUsers(r.Context())
		if err != nil {
			writeError(w, apperr.Internal("failed to list api users: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if strings.TrimSpace(req.Username) == "" {
			writeError(w, apperr.Validation("username must not be empty"))
			return
		}
		id, err := s.store.CreateApiUser(r.Context(), req.Username)
		if err != nil {
			writeError(w, apperr.Internal("failed to create api user: %v", err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
	default:
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
	}
}

// createTokenRequest is the POST /admin/tokens payload. The raw token
// is generated here and returned exactly once; only its hash is
// persisted, matching auth.HashToken's one-way lookup contract.
type createTokenRequest struct {
	UserID     int64  `json:"user_id"`
	DailyLimit int64  `json:"daily_limit"`
	Token      string `json:"token"`
}

// adminTokens handles GET (list by user_id) and POST (create) on
// /admin/tokens.
func (s *HTTPServer) adminTokens(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID := int64(queryInt(r, "user_id", 0))
		if userID == 0 {
			writeError(w, apperr.Validation("user_id query parameter is required"))
			return
		}
		tokens, err := s.store.ListApiTokens(r.Context(), userID)
		if err != nil {
			writeError(w, apperr.Internal("failed to list api tokens: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	case http.MethodPost:
		var req createTokenRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			writeError(w, apperr.Validation("token must not be empty"))
			return
		}
		dailyLimit := req.DailyLimit
		if dailyLimit <= 0 {
			dailyLimit = s.appCfg.RateLimiting.DefaultPerDay
		}
		id, err := s.store.CreateApiToken(r.Context(), store.ApiToken{
			UserID:     req.UserID,
			Hash:       auth.HashToken(req.Token),
			DailyLimit: dailyLimit,
		})
		if err != nil {
			writeError(w, apperr.Internal("failed to create api token: %v", err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
	default:
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
	}
}

// adminTokenByID handles PUT /admin/tokens/{id}/active, revoking or
// reactivating a single token.
func (s *HTTPServer) adminTokenByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/tokens/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "active" {
		writeError(w, apperr.Validation("expected /admin/tokens/{id}/active"))
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("invalid token id %q", parts[0]))
		return
	}
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SetTokenActive(r.Context(), id, req.Active); err != nil {
		writeError(w, apperr.NotFound("%v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func pathID(r *http.Request, prefix string) (int64, error) {
	idStr := strings.TrimPrefix(r.URL.Path, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid id %q", idStr)
	}
	return id, nil
}
