package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineIsValid(t *testing.T) {
	require.NoError(t, DefaultEngine().Validate())
}

func TestValidateRejectsBadChunking(t *testing.T) {
	cases := map[string]func(*Engine){
		"chunk_size":    func(e *Engine) { e.ChunkSize = 0 },
		"chunk_overlap": func(e *Engine) { e.ChunkOverlap = e.ChunkSize },
		"top_k":         func(e *Engine) { e.TopK = 0 },
		"llm_provider":  func(e *Engine) { e.LLMProvider = "bard" },
		"embedder":      func(e *Engine) { e.Embedder = "word2vec" },
	}
	for field, mutate := range cases {
		e := DefaultEngine()
		mutate(&e)
		err := e.Validate()
		var cfgErr *Error
		require.True(t, errors.As(err, &cfgErr), field)
		assert.Equal(t, field, cfgErr.Field)
	}
}

func TestLoadAppliesYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 500\nchunk_overlap: 50\ntop_k: 5\n"), 0o600))

	t.Setenv("DOCINTEL_CONFIG", path)
	t.Setenv("TOP_K", "7")
	t.Setenv("SIGNED_URL_TTL_HOURS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Engine.ChunkSize)
	assert.Equal(t, 50, cfg.Engine.ChunkOverlap)
	assert.Equal(t, 7, cfg.Engine.TopK)
	assert.Equal(t, 2*time.Hour, cfg.Cloud.SignedURLTTL)
	assert.Equal(t, "documents", cfg.Cloud.DocumentsCollection)
}

func TestLoadFailsFastOnInvalidOverlap(t *testing.T) {
	t.Setenv("DOCINTEL_CONFIG", "")
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := Load()
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "chunk_overlap", cfgErr.Field)
}

func TestRequireCloud(t *testing.T) {
	assert.Error(t, Cloud{}.RequireCloud(false))
	assert.Error(t, Cloud{ProjectID: "p"}.RequireCloud(true))
	assert.NoError(t, Cloud{ProjectID: "p", DocumentsBucket: "b"}.RequireCloud(true))
}
