// Package quiz generates multiple-choice questions from page text and grades
// answers to them.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
)

// MaxQuestions bounds the number of questions per request.
const MaxQuestions = 20

var (
	ErrInvalidCount  = fmt.Errorf("question count must be between 1 and %d", MaxQuestions)
	ErrMalformedQuiz = errors.New("malformed quiz response")
	ErrNoText        = errors.New("no text to generate a quiz from")
)

// SchemaError describes the first problem found in a generated quiz.
type SchemaError struct {
	Ordinal int
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Ordinal == 0 {
		return fmt.Sprintf("%v: %s", ErrMalformedQuiz, e.Reason)
	}
	return fmt.Sprintf("%v: question %d: %s", ErrMalformedQuiz, e.Ordinal, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrMalformedQuiz }

// Options controls one generation request.
type Options struct {
	Count   int
	Tone    string
	Subject string
}

// Generator asks the completion service for a quiz in JSON mode and
// validates every requested question before returning any of them.
type Generator struct {
	Completer llm.Completer
	Model     string
}

// wireQuestion is the JSON shape the model is asked to produce.
type wireQuestion struct {
	Prompt      string            `json:"mcq"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct"`
	Explanation string            `json:"explanation"`
}

func (g *Generator) Generate(ctx context.Context, text string, opts Options) (map[int]models.QuizQuestion, error) {
	if opts.Count < 1 || opts.Count > MaxQuestions {
		return nil, ErrInvalidCount
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	raw, err := g.Completer.Complete(ctx, llm.Request{
		Model: g.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You create multiple-choice questions for students. Respond with JSON only."},
			{Role: llm.RoleUser, Content: buildPrompt(text, opts)},
		},
		Temperature: 0.4,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	return parseQuiz(llm.CleanText(raw), opts.Count)
}

func buildPrompt(text string, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d multiple-choice questions from the text below.", opts.Count)
	if opts.Subject != "" {
		fmt.Fprintf(&b, " The subject is %s.", opts.Subject)
	}
	if opts.Tone != "" {
		fmt.Fprintf(&b, " Write the questions in a %s tone.", opts.Tone)
	}
	b.WriteString(` Each question has four options labelled A, B, C and D, exactly one correct answer and a short explanation.`)
	b.WriteString(` Return a JSON object keyed by question number, for example:`)
	b.WriteString(` {"1": {"no": 1, "mcq": "question", "options": {"A": "...", "B": "...", "C": "...", "D": "..."}, "correct": "A", "explanation": "..."}}`)
	fmt.Fprintf(&b, "\n\nText:\n%s", text)
	return b.String()
}

func parseQuiz(raw string, count int) (map[int]models.QuizQuestion, error) {
	var wire map[string]wireQuestion
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, &SchemaError{Reason: "response is not a JSON object of questions"}
	}
	out := make(map[int]models.QuizQuestion, count)
	for n := 1; n <= count; n++ {
		w, ok := wire[strconv.Itoa(n)]
		if !ok {
			return nil, &SchemaError{Ordinal: n, Reason: "missing"}
		}
		q, err := Validate(models.QuizQuestion{
			Ordinal:     n,
			Prompt:      w.Prompt,
			Options:     w.Options,
			Correct:     w.Correct,
			Explanation: w.Explanation,
		})
		if err != nil {
			return nil, err
		}
		out[n] = q
	}
	return out, nil
}

// Validate normalises q (trimmed text, upper-case letters) and checks that
// it is answerable: a prompt, at least two non-empty distinct options, a
// correct letter among them and an explanation. The returned question never
// shares its Options map with q.
func Validate(q models.QuizQuestion) (models.QuizQuestion, error) {
	n := q.Ordinal
	out := models.QuizQuestion{
		Ordinal:     n,
		Prompt:      strings.TrimSpace(q.Prompt),
		Options:     make(map[string]string, len(q.Options)),
		Correct:     strings.ToUpper(strings.TrimSpace(q.Correct)),
		Explanation: strings.TrimSpace(q.Explanation),
	}
	if out.Prompt == "" {
		return out, &SchemaError{Ordinal: n, Reason: "empty question text"}
	}
	if len(q.Options) < 2 {
		return out, &SchemaError{Ordinal: n, Reason: "fewer than two options"}
	}
	for k, v := range q.Options {
		letter := strings.ToUpper(strings.TrimSpace(k))
		if !IsOptionLetter(letter) {
			return out, &SchemaError{Ordinal: n, Reason: fmt.Sprintf("invalid option key %q", k)}
		}
		if strings.TrimSpace(v) == "" {
			return out, &SchemaError{Ordinal: n, Reason: fmt.Sprintf("option %s is empty", letter)}
		}
		if _, dup := out.Options[letter]; dup {
			return out, &SchemaError{Ordinal: n, Reason: fmt.Sprintf("duplicate option %s", letter)}
		}
		out.Options[letter] = strings.TrimSpace(v)
	}
	if _, ok := out.Options[out.Correct]; !ok {
		return out, &SchemaError{Ordinal: n, Reason: fmt.Sprintf("correct answer %q is not an option", q.Correct)}
	}
	if out.Explanation == "" {
		return out, &SchemaError{Ordinal: n, Reason: "empty explanation"}
	}
	return out, nil
}

// IsOptionLetter reports whether s is a single letter A-Z.
func IsOptionLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z'
}
