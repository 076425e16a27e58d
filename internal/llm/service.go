// Package llm talks to hosted language models. Every provider answers one
// question about one piece of text and reports failures as *ServiceError.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Request is one question about one piece of text.
type Request struct {
	Text        string
	Question    string
	Model       string   // Empty uses the provider's configured model.
	Title       string   // Document title, for context.
	Section     []string // Heading breadcrumb, for context.
	Temperature float64
	MaxTokens   int
}

// Prompt renders the request as a single user message.
func (r Request) Prompt() string {
	return BuildChunkPrompt(r.Title, r.Section, r.Text, r.Question)
}

// Answerer answers a question about the request text.
type Answerer interface {
	Ask(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindNetwork     ErrorKind = "network"
	KindMalformed   ErrorKind = "malformed_response"
	KindUnavailable ErrorKind = "unavailable"
	KindRejected    ErrorKind = "rejected"
)

// ServiceError is a failed call to a model provider.
type ServiceError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, truncate(msg, 200))
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, truncate(msg, 200))
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed later.
func (e *ServiceError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindNetwork, KindUnavailable:
		return true
	}
	return false
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Retryable()
}

// kindForStatus maps an HTTP status from a provider to an error kind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout || code >= 500:
		return KindUnavailable
	default:
		return KindRejected
	}
}

// statusError builds the ServiceError for a non-2xx response.
func statusError(provider string, code int, msg string, err error) *ServiceError {
	return &ServiceError{
		Provider:   provider,
		Kind:       kindForStatus(code),
		StatusCode: code,
		Message:    msg,
		Err:        err,
	}
}

// transportError wraps a failure that happened before any response arrived.
// Context cancellation is passed through untouched.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ServiceError{Provider: provider, Kind: KindNetwork, Err: err}
}

func malformed(provider, msg string) *ServiceError {
	return &ServiceError{Provider: provider, Kind: KindMalformed, Message: msg}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
