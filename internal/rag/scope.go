package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrScopeNotReady is returned by Query before a successful Initialize.
var ErrScopeNotReady = errors.New("retrieval scope is not initialized")

// Scope is the retrieval state for one text source, usually one document
// page. It is owned by a single caller; all operations are serialized by a
// scope-level mutex. Re-initializing replaces the index wholesale.
type Scope struct {
	mu       sync.Mutex
	embedder Embedder
	size     int
	overlap  int
	index    *Index
}

// NewScope returns an empty scope. The chunking parameters are validated
// here so a misconfigured scope fails before any external call.
func NewScope(embedder Embedder, size, overlap int) (*Scope, error) {
	if err := ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, errors.New("scope requires an embedder")
	}
	return &Scope{embedder: embedder, size: size, overlap: overlap}, nil
}

// Initialize chunks and embeds text and swaps in the new index. On error the
// previously initialized index, if any, stays in place and queryable.
func (s *Scope) Initialize(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := ChunkText(text, s.size, s.overlap)
	if err != nil {
		return err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
	}
	index, err := NewIndex(chunks, vectors)
	if err != nil {
		return err
	}
	s.index = index
	return nil
}

// Ready reports whether Query can be called.
func (s *Scope) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index != nil
}

// Len returns the number of chunks in the active index.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// Query returns the k chunks most similar to text.
func (s *Scope) Query(ctx context.Context, text string, k int) ([]Chunk, error) {
	matches, err := s.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}
	out := make([]Chunk, len(matches))
	for i, m := range matches {
		out[i] = m.Chunk
	}
	return out, nil
}

// Search is Query with similarity scores.
func (s *Scope) Search(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil, ErrScopeNotReady
	}
	if s.index.Len() == 0 {
		return []Match{}, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", ErrMalformedEmbedding, len(vecs))
	}
	return s.index.Search(vecs[0], k)
}
