// Package apierrors defines the typed error kinds surfaced at the API
// boundary (§7 of the spec) and their translation to HTTP responses.
// The shape mirrors the teacher's errors.NewInternalServerError /
// errors.NewBadRequestError call sites (internal/httpserver/handlers),
// whose package body never made it into the retrieval pack — reconstructed
// here from those call sites plus the status-code table in §7.
package apierrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the error categories named in §7.
type Kind string

const (
	KindAuth               Kind = "auth"
	KindForbidden          Kind = "forbidden"
	KindRateLimit          Kind = "rate_limit"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindIndexUnavailable   Kind = "index_unavailable"
	KindDeadlineExceeded   Kind = "deadline_exceeded"
	KindInternal           Kind = "internal"
	KindMalformed          Kind = "malformed"
)

// APIError is the error type every component boundary returns instead of
// panicking or relying on exceptions (§9 design note: explicit result
// types, translated to HTTP status in one place).
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string // field -> message, for KindValidation
	Cause   error
	CorrelationID string
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Cause }

func NewAuthError(message string) *APIError {
	return &APIError{Kind: KindAuth, Status: http.StatusUnauthorized, Message: message}
}

func NewForbiddenError(message string) *APIError {
	return &APIError{Kind: KindForbidden, Status: http.StatusForbidden, Message: message}
}

func NewRateLimitError(limit, remaining int) *APIError {
	return &APIError{
		Kind:   KindRateLimit,
		Status: http.StatusTooManyRequests,
		Message: "rate limit exceeded",
		Fields: map[string]string{
			"limit":     fmt.Sprintf("%d", limit),
			"remaining": fmt.Sprintf("%d", remaining),
		},
	}
}

func NewValidationError(fields map[string]string) *APIError {
	return &APIError{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Message: "validation failed", Fields: fields}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

func NewIndexUnavailableError(message string) *APIError {
	return &APIError{Kind: KindIndexUnavailable, Status: http.StatusServiceUnavailable, Message: message}
}

func NewDeadlineExceededError() *APIError {
	return &APIError{Kind: KindDeadlineExceeded, Status: http.StatusGatewayTimeout, Message: "request deadline exceeded"}
}

func NewMalformedError(message string) *APIError {
	return &APIError{Kind: KindMalformed, Status: http.StatusBadRequest, Message: message}
}

// NewInternalError wraps an unexpected error with a correlation id; the
// response body carries only the id, never the underlying message (§7).
func NewInternalError(correlationID string, cause error) *APIError {
	return &APIError{
		Kind:          KindInternal,
		Status:        http.StatusInternalServerError,
		Message:       "internal error",
		Cause:         cause,
		CorrelationID: correlationID,
	}
}

// AsAPIError unwraps err into an *APIError, or wraps it as an internal
// error with a fresh correlation id if it isn't one already. A
// context.DeadlineExceeded anywhere in err's chain (raw, from
// deadlineMiddleware's context.WithTimeout, or already wrapped inside
// an internal error's Cause) always translates to KindDeadlineExceeded
// (§5, §7), checked ahead of the generic unwrap so a deadline never
// gets reported as a plain internal error.
func AsAPIError(err error, correlationID string) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewDeadlineExceededError()
	}
	var apiErr *APIError
	if as(err, &apiErr) {
		return apiErr
	}
	return NewInternalError(correlationID, err)
}

func as(err error, target **APIError) bool {
	for err != nil {
		if e, ok := err.(*APIError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
