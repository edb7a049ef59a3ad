package rag

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidK is returned for a non-positive result count.
var ErrInvalidK = errors.New("k must be positive")

// Index holds chunk/vector pairs for one text source and answers
// nearest-neighbour queries by linear scan.
type Index struct {
	chunks  []Chunk
	vectors [][]float32
}

// Match is a chunk with its similarity to the query.
type Match struct {
	Chunk Chunk
	Score float64
}

// NewIndex pairs chunks with their vectors. Both slices must have equal length.
func NewIndex(chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("index: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	return &Index{
		chunks:  slices.Clone(chunks),
		vectors: slices.Clone(vectors),
	}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search returns up to k chunks ordered by descending similarity. Equal
// scores keep the lower chunk index first.
func (ix *Index) Search(query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	matches := make([]Match, len(ix.chunks))
	for i, v := range ix.vectors {
		matches[i] = Match{Chunk: ix.chunks[i], Score: CosineSimilarity(query, v)}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Chunk.Index - b.Chunk.Index
		}
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}
