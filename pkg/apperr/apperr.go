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

// Package apperr declares the typed error kinds the HTTP edge maps onto
// status codes, grounded in pkg/server/http.go's error-body conventions
// in the teacher repo.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the seven error categories from the service's
// error-handling contract.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindAuth
	KindRateLimit
	KindUpstream
	KindConfig
	KindInternal
)

func (k Kind) httpStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth_error"
	case KindRateLimit:
		return "rate_limit_error"
	case KindUpstream:
		return "upstream_error"
	case KindConfig:
		return "config_error"
	default:
		return "internal_error"
	}
}

// Error is a typed application error carrying an HTTP status and an
// optional wrapped cause. RetryAfterSeconds is only meaningful for
// KindRateLimit.
type Error struct {
	Kind              Kind
	Message           string
	Cause             error
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code this error maps to.
func (e *Error) HTTPStatus() int { return e.Kind.httpStatus() }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation, NotFound, Auth, Upstream, Internal are shorthand
// constructors for the corresponding Kind.
func Validation(format string, args ...interface{}) *Error { return New(KindValidation, format, args...) }
func NotFound(format string, args ...interface{}) *Error   { return New(KindNotFound, format, args...) }
func Auth(format string, args ...interface{}) *Error       { return New(KindAuth, format, args...) }
func Internal(format string, args ...interface{}) *Error   { return New(KindInternal, format, args...) }
func Config(format string, args ...interface{}) *Error     { return New(KindConfig, format, args...) }

// Upstream wraps a failure from the vector store or an embedding
// provider.
func Upstream(cause error, format string, args ...interface{}) *Error {
	return Wrap(KindUpstream, cause, format, args...)
}

// RateLimit builds a KindRateLimit error carrying the Retry-After value
// in seconds.
func RateLimit(retryAfterSeconds int, format string, args ...interface{}) *Error {
	e := New(KindRateLimit, format, args...)
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

// As extracts an *Error from err via errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus returns the status code err maps to, defaulting to 500 for
// errors that are not *Error.
func HTTPStatus(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
