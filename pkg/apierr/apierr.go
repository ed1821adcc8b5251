// Package apierr normalizes the error taxonomy of spec §7 into a single
// type every HTTP handler can return and a single place that renders it
// as the {error, details?, job?} envelope of spec §6.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is a handler-level error carrying the HTTP status and a stable
// machine-readable code alongside the human message.
type Error struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"error"`
	Details string      `json:"details,omitempty"`
	Job     interface{} `json:"-"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// E builds a new Error. Code is a stable snake_case identifier such as
// "hash_mismatch" or "config_missing"; message is the human string
// returned as the top-level "error" field.
func E(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithDetails returns a copy of e carrying additional detail text,
// truncated to 1024 bytes per the §7 policy on upstream error bodies.
func (e *Error) WithDetails(details string) *Error {
	if len(details) > 1024 {
		details = details[:1024]
	}
	cp := *e
	cp.Details = details
	return &cp
}

// WithJob attaches a job snapshot to be rendered in the response
// envelope's "job" field, for handlers that only have an error to
// return (e.g. a soft-pending preflight that keeps the job alive).
func (e *Error) WithJob(job interface{}) *Error {
	cp := *e
	cp.Job = job
	return &cp
}

func Validation(code, message string) *Error { return E(http.StatusBadRequest, code, message) }
func Unauthorized(code, message string) *Error {
	return E(http.StatusUnauthorized, code, message)
}
func Forbidden(code, message string) *Error  { return E(http.StatusForbidden, code, message) }
func NotFound(code, message string) *Error   { return E(http.StatusNotFound, code, message) }
func Conflict(code, message string) *Error   { return E(http.StatusConflict, code, message) }
func Gone(code, message string) *Error       { return E(http.StatusGone, code, message) }
func RateLimited(code, message string) *Error {
	return E(http.StatusTooManyRequests, code, message)
}
func Upstream(code, message string) *Error { return E(http.StatusBadGateway, code, message) }
func Internal(code, message string) *Error {
	return E(http.StatusInternalServerError, code, message)
}
func Unavailable(code, message string) *Error {
	return E(http.StatusServiceUnavailable, code, message)
}

// As extracts an *Error from err, wrapping it as a 500 if it isn't one
// already so every handler path still produces the standard envelope.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal_error", err.Error())
}

// envelope is the wire shape from spec §6: {error, details?, job?}.
type envelope struct {
	Error   string      `json:"error"`
	Details string      `json:"details,omitempty"`
	Job     interface{} `json:"job,omitempty"`
}

// Write renders err (or any error) as the standard JSON envelope, with
// an optional job snapshot attached when the caller has one to return
// (e.g. a soft-pending preflight keeps the job at its current status).
func Write(w http.ResponseWriter, err error, job interface{}) {
	e := As(err)
	if job == nil {
		job = e.Job
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: e.Message, Details: e.Details, Job: job})
}
