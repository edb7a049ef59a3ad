package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/documentintelligence/internal/llm"
)

var (
	// ErrEmptyQuestion is returned before any external call for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNoContext is returned, without calling the model, when the scope
	// holds no text to answer from.
	ErrNoContext = errors.New("no text on this page to answer from")
)

const answerSystemPrompt = "Answer the following question based only on the provided context. If the answer cannot be found in the context, say 'I cannot find the answer in the provided context.' Do not use outside knowledge."

// Answer is a grounded answer and the passages it was grounded on.
type Answer struct {
	Text    string
	Sources []Chunk
}

// Answerer synthesizes grounded answers from a retrieval scope.
type Answerer struct {
	Completer   llm.Completer
	Model       string
	TopK        int
	Temperature float32
}

// NewAnswerer returns an Answerer using the reference defaults (k=3, t=0.2).
func NewAnswerer(c llm.Completer, model string) *Answerer {
	return &Answerer{Completer: c, Model: model, TopK: 3, Temperature: 0.2}
}

// Answer retrieves the top passages for question and asks the completion
// service to answer from them alone.
func (a *Answerer) Answer(ctx context.Context, scope *Scope, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	k := a.TopK
	if k <= 0 {
		k = 3
	}
	sources, err := scope.Query(ctx, question, k)
	if err != nil {
		return Answer{}, err
	}
	passages := make([]string, len(sources))
	blank := true
	for i, c := range sources {
		passages[i] = c.Text
		if strings.TrimSpace(c.Text) != "" {
			blank = false
		}
	}
	if blank {
		return Answer{}, ErrNoContext
	}

	text, err := a.Completer.Complete(ctx, llm.Request{
		Model: a.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", strings.Join(passages, "\n\n"), question)},
		},
		Temperature: a.Temperature,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	text = llm.CleanText(text)
	if text == "" {
		return Answer{}, llm.ErrEmptyResponse
	}
	return Answer{Text: text, Sources: sources}, nil
}
