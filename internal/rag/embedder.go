package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// ErrMalformedEmbedding is returned when a provider vector fails validation.
var ErrMalformedEmbedding = errors.New("malformed embedding")

// Embedder turns texts into fixed-dimension vectors. Embed returns exactly
// one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// HashEmbedder is a deterministic local embedder. It hashes lower-cased
// word tokens and character trigrams into a fixed number of signed buckets
// and L2-normalises the result.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder returns a HashEmbedder with the given dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{Dim: dim}
}

func (h *HashEmbedder) Dimension() int { return h.Dim }

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, h.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h.add(vec, "w:"+w, 2)
		padded := []rune("^" + w + "$")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, string(padded[i:i+3]), 1)
		}
	}
	return normalize(vec)
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	bucket := int(sum % uint64(h.Dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

const embeddingSystemPrompt = "You are an embedding generator. Return a numeric vector representation of the input text."

// CompletionEmbedder asks a chat completion service for vectors, one call
// per text. Every returned vector is validated for length and finiteness.
type CompletionEmbedder struct {
	Completer   llm.Completer
	Model       string
	Dim         int
	Concurrency int
}

func (c *CompletionEmbedder) Dimension() int { return c.Dim }

func (c *CompletionEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(c.Concurrency, 1))
	for i, text := range texts {
		eg.Go(func() error {
			v, err := c.embedOne(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CompletionEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	raw, err := c.Completer.Complete(ctx, llm.Request{
		Model: c.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: embeddingSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Generate a %d-dimensional numeric embedding vector for this text and answer with JSON {\"embedding\": [...]}: %q", c.Dim, text)},
		},
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	return parseEmbedding(llm.CleanText(raw), c.Dim)
}

func parseEmbedding(raw string, dim int) ([]float32, error) {
	var values []float64
	var wrapped struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Embedding != nil {
		values = wrapped.Embedding
	} else if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("%w: not a JSON vector", ErrMalformedEmbedding)
	}
	if len(values) != dim {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrMalformedEmbedding, len(values), dim)
	}
	vec := make([]float32, dim)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d is not finite", ErrMalformedEmbedding, i)
		}
		vec[i] = float32(v)
	}
	return normalize(vec), nil
}

// FallbackEmbedder uses Primary and degrades to Fallback when Primary
// fails for any reason other than the caller's context ending. Both must
// share a dimension.
type FallbackEmbedder struct {
	Primary  Embedder
	Fallback Embedder
	Logger   *slog.Logger
}

func (f *FallbackEmbedder) Dimension() int { return f.Fallback.Dimension() }

func (f *FallbackEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := f.Primary.Embed(ctx, texts)
	if err == nil {
		return vecs, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("Primary embedder failed, using fallback embeddings.", "error", err, "texts", len(texts))
	return f.Fallback.Embed(ctx, texts)
}
