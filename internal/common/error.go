package common

import "errors"

// Error code constants shared by the client layer and the stub backend.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeAuthRejected = "auth_rejected"
	ErrCodeOffline      = "offline"
	ErrCodeTimeout      = "timeout"
	ErrCodeInternal     = "internal_error"
)

// Sentinels for the client error taxonomy. Transport and decode failures are
// wrapped with %w around these where a category is known.
var (
	// ErrNotFound: the backend has no record for the requested id.
	ErrNotFound = errors.New("not found")
	// ErrAuthRejected: a 2xx response whose envelope signals an invalid or
	// missing access token.
	ErrAuthRejected = errors.New("auth rejected")
	// ErrOffline: connectivity probe failed before the call was issued.
	ErrOffline = errors.New("offline")
	// ErrTimeout: the bounded call expired and was abandoned.
	ErrTimeout = errors.New("timeout")
	// ErrValidation: a client-side precondition failed; never reaches the
	// network.
	ErrValidation = errors.New("validation failed")
)
