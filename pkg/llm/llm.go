// Package llm defines the chat completion client used for answer synthesis.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimited indicates the provider throttled the request. Callers may
// retry after backing off.
var ErrRateLimited = errors.New("llm rate limited")

// ErrUnavailable indicates a transient provider failure such as a timeout
// or server error. Callers may retry.
var ErrUnavailable = errors.New("llm unavailable")

// ErrRejected indicates the provider refused the request for a reason
// retrying cannot fix, such as invalid credentials or an exhausted quota.
var ErrRejected = errors.New("llm request rejected")

// Request is a single chat completion request.
type Request struct {
	// System is the system prompt framing the model's role.
	System string

	// Prompt is the user-turn content, typically context plus question.
	Prompt string
}

// Client generates chat completions.
type Client interface {
	// Complete returns the model's response text for the request.
	Complete(ctx context.Context, req Request) (string, error)

	// Close releases any resources held by the client.
	Close() error
}

// Retryable reports whether the error is transient and worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
