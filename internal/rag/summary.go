package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/documentintelligence/internal/llm"
)

// ErrNoText is returned when there is nothing to summarize.
var ErrNoText = errors.New("no text to summarize")

// Summarizer produces a short summary of one page.
type Summarizer struct {
	Completer llm.Completer
	Model     string
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	out, err := s.Completer.Complete(ctx, llm.Request{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf("Create a concise, clear summary of the following text while maintaining key information. Keep it short, 4-5 lines:\n\n%q", text)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	out = llm.CleanText(out)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}
