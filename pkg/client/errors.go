package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the fetcher.
var (
	// ErrInvalidConfig is returned by New for unusable configuration,
	// such as a non-positive timeout.
	ErrInvalidConfig = errors.New("invalid fetcher configuration")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrDecode is returned when a 2xx response carries a body that is not
	// valid JSON. It is fatal and never retried.
	ErrDecode = errors.New("malformed response body")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (except 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents unparseable 2xx response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError represents an HTTP-level failure with classification context.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	URL        string
	Message    string

	// RetryAfter is the server-requested wait from a 429 response.
	// Zero when the header was absent or unparseable.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("prixnc %s error (status %d) at %s: %s",
		e.Class, e.StatusCode, e.URL, e.Message)
}

// classifyStatus maps a non-success HTTP status to an error class.
// 429 is rate-limited and retryable; every other 4xx is fatal.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}

// classify determines the error class of any failure produced inside the
// attempt loop. Transport-level errors carry no APIError and default to
// the network class.
func classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	if errors.Is(err, ErrDecode) {
		return ErrorClassDecode
	}
	return ErrorClassNetwork
}

// shouldRetry determines if an error class is retryable.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient, ErrorClassDecode:
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
