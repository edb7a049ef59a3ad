// Package rag turns the text of one document page into a searchable
// retrieval scope and answers grounded questions over it.
package rag

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkConfig reports a chunk size/overlap pair that cannot
// produce forward progress. It is a configuration error and never retried.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Chunk is an ordered, immutable span of the source text. Start is a rune offset.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	Text  string `json:"text"`
}

// ValidateChunking checks the size/overlap precondition.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunkConfig, overlap, size)
	}
	return nil
}

// ChunkText splits text into windows of size runes starting every
// size-overlap runes. The last window ends at the end of the text and may
// be shorter. Empty text yields no chunks.
func ChunkText(text string, size, overlap int) ([]Chunk, error) {
	if err := ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := size - overlap
	chunks := make([]Chunk, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
