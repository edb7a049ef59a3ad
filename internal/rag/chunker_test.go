package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestChunkTextOverlappingWindows(t *testing.T) {
	chunks, err := ChunkText("abcdefghij", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, texts(chunks))
	assert.Equal(t, []int{0, 3, 6}, []int{chunks[0].Start, chunks[1].Start, chunks[2].Start})
}

func TestChunkTextShortAndEmpty(t *testing.T) {
	chunks, err := ChunkText("short", 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, texts(chunks))

	chunks, err = ChunkText("", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkTextRejectsBadConfig(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {10, 10}, {10, 12}, {10, -1}} {
		_, err := ChunkText("abc", tc.size, tc.overlap)
		assert.ErrorIs(t, err, ErrInvalidChunkConfig)
	}
}

func TestChunkTextCoversSource(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 97)
	runes := []rune(text)
	for _, tc := range []struct{ size, overlap int }{{1000, 200}, {64, 0}, {50, 49}, {7, 3}} {
		chunks, err := ChunkText(text, tc.size, tc.overlap)
		require.NoError(t, err)

		step := tc.size - tc.overlap
		want := 1
		if rest := len(runes) - tc.size; rest > 0 {
			want += (rest + step - 1) / step
		}
		assert.Len(t, chunks, want)

		var rebuilt strings.Builder
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.LessOrEqual(t, len([]rune(c.Text)), tc.size)
			skip := 0
			if i > 0 {
				skip = tc.overlap
			}
			rebuilt.WriteString(string([]rune(c.Text)[skip:]))
		}
		assert.Equal(t, text, rebuilt.String())
	}
}

func TestChunkTextCountsRunes(t *testing.T) {
	chunks, err := ChunkText("héllo wörld", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"héllo", " wörl", "d"}, texts(chunks))
}
