package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair of a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	Model           string
	Messages        []Message
	Temperature     float32
	MaxOutputTokens int
	// JSON asks the provider to return a single JSON object.
	JSON bool
}

// Completer is the completion service consumed by the answerer, classifier,
// quiz generator and the completion-backed embedder.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var (
	// ErrEmptyResponse is returned when the provider answers without content.
	ErrEmptyResponse = errors.New("completion response has no content")
	// ErrMissingCredentials is a configuration error raised by constructors.
	ErrMissingCredentials = errors.New("completion service credentials are missing")
)

// StatusError is a non-2xx answer from an HTTP completion provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s completion error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsTransient reports whether a failed call may succeed if repeated:
// rate limits, server errors, timeouts and network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unavailable") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "rate limit")
}

// CleanText trims whitespace and a surrounding markdown fence from model output.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
