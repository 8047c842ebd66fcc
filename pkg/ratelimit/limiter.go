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

// Package ratelimit enforces the per-token daily request budget described
// in spec.md §4.1: a single counter keyed on (token, UTC date), backed by
// pkg/store rather than an in-process window tracker, since the budget
// must survive process restarts and be shared across replicas of the
// service sitting behind the same database.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/chromasearch/searchsvc/pkg/store"
)

// Result carries the outcome of a single CheckAndRecord call, enough to
// populate the X-RateLimit-* / Retry-After response headers spec.md §4.1
// requires either way (allowed or rejected).
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetEpoch int64 // next UTC midnight, as a Unix timestamp
	// RetryAfterSeconds is set only when Allowed is false.
	RetryAfterSeconds int64
}

// Limiter enforces per-token daily budgets using api_token_usage rows.
type Limiter struct {
	store *store.Store
}

// New builds a Limiter over an already-opened Store.
func New(s *store.Store) *Limiter {
	return &Limiter{store: s}
}

// nextUTCMidnight returns the next UTC day boundary after t, the basis
// of the X-RateLimit-Reset header value.
func nextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// CheckAndRecord increments tokenID's counter for the current UTC date
// and reports whether the request stays within dailyLimit. A dailyLimit
// of zero or less is treated as unlimited, matching a token configured
// with no explicit budget.
//
// The counter is incremented unconditionally, including on the call that
// trips the limit — spec.md §8's boundary property is that the
// rate_limit-th call is allowed and the (rate_limit+1)-th is rejected,
// which requires every call (allowed or not) to be counted once.
func (l *Limiter) CheckAndRecord(ctx context.Context, tokenID int64, dailyLimit int64) (Result, error) {
	now := time.Now().UTC()
	reset := nextUTCMidnight(now)

	count, err := l.store.IncrementTokenUsage(ctx, tokenID, now)
	if err != nil {
		return Result{}, fmt.Errorf("failed to record token usage: %w", err)
	}

	if dailyLimit <= 0 {
		return Result{Allowed: true, Limit: 0, Remaining: -1, ResetEpoch: reset.Unix()}, nil
	}

	if count > dailyLimit {
		// spec.md §4.1 fixes Retry-After at a flat 86400 (one day) rather
		// than the exact seconds remaining until UTC midnight.
		return Result{
			Allowed:           false,
			Limit:             dailyLimit,
			Remaining:         0,
			ResetEpoch:        reset.Unix(),
			RetryAfterSeconds: 86400,
		}, nil
	}

	return Result{
		Allowed:    true,
		Limit:      dailyLimit,
		Remaining:  dailyLimit - count,
		ResetEpoch: reset.Unix(),
	}, nil
}
