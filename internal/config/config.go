package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

// Error is a configuration error. It is never retryable.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// Engine holds the retrieval and generation tuning knobs. It can be
// loaded from a YAML file and is then overridden by environment variables.
type Engine struct {
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	TopK              int     `yaml:"top_k"`
	EmbeddingDim      int     `yaml:"embedding_dim"`
	Embedder          string  `yaml:"embedder"`
	LLMProvider       string  `yaml:"llm_provider"`
	ChatModel         string  `yaml:"chat_model"`
	ClassifierModel   string  `yaml:"classifier_model"`
	LLMTimeoutSeconds int     `yaml:"llm_timeout_seconds"`
	RequestsPerSecond float64 `yaml:"llm_requests_per_second"`
	IngestConcurrency int     `yaml:"ingest_concurrency"`
}

// Cloud holds the GCP resource names used by the functions.
type Cloud struct {
	ProjectID            string
	VertexAIRegion       string
	DocumentsBucket      string
	InboxBucket          string
	DocumentsCollection  string
	SubjectsCollection   string
	QuizCollection       string
	IssuedQuizCollection string
	WorkflowID           string
	WorkflowLocation     string
	SignedURLTTL         time.Duration
	GroqAPIKey           string
	GroqModel            string
}

// Config is the full runtime configuration.
type Config struct {
	Engine Engine
	Cloud  Cloud
}

// DefaultEngine returns the built-in tuning values.
func DefaultEngine() Engine {
	return Engine{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		TopK:              3,
		EmbeddingDim:      256,
		Embedder:          "hash",
		LLMProvider:       "vertex",
		ChatModel:         "gemini-1.5-pro",
		ClassifierModel:   "gemini-1.5-flash",
		LLMTimeoutSeconds: 60,
		RequestsPerSecond: 2,
		IngestConcurrency: 1,
	}
}

// Load reads the optional YAML file named by DOCINTEL_CONFIG and then
// applies environment overrides.
func Load() (*Config, error) {
	engine := DefaultEngine()
	if path := GetEnv("DOCINTEL_CONFIG", ""); path != "" {
		if err := loadEngineFile(path, &engine); err != nil {
			return nil, err
		}
	}
	applyEngineEnv(&engine)

	cfg := &Config{
		Engine: engine,
		Cloud: Cloud{
			ProjectID:            GetEnv("PROJECT_ID", ""),
			VertexAIRegion:       GetEnv("VERTEX_AI_REGION", "us-central1"),
			DocumentsBucket:      GetEnv("DOCUMENTS_BUCKET", ""),
			InboxBucket:          GetEnv("INBOX_BUCKET", ""),
			DocumentsCollection:  GetEnv("FIRESTORE_DOCUMENTS_COLLECTION", "documents"),
			SubjectsCollection:   GetEnv("FIRESTORE_SUBJECTS_COLLECTION", "subjects"),
			QuizCollection:       GetEnv("FIRESTORE_QUIZ_COLLECTION", "quizAttempts"),
			IssuedQuizCollection: GetEnv("FIRESTORE_ISSUED_QUIZ_COLLECTION", "quizzes"),
			WorkflowID:           GetEnv("WORKFLOW_ID", ""),
			WorkflowLocation:     GetEnv("WORKFLOW_LOCATION", "us-central1"),
			SignedURLTTL:         time.Duration(getEnvInt("SIGNED_URL_TTL_HOURS", 168)) * time.Hour,
			GroqAPIKey:           GetEnv("GROQ_API_KEY", ""),
			GroqModel:            GetEnv("GROQ_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		},
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEngineFile(path string, engine *Engine) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, engine); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEngineEnv(e *Engine) {
	e.ChunkSize = getEnvInt("CHUNK_SIZE", e.ChunkSize)
	e.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", e.ChunkOverlap)
	e.TopK = getEnvInt("TOP_K", e.TopK)
	e.EmbeddingDim = getEnvInt("EMBEDDING_DIM", e.EmbeddingDim)
	e.Embedder = GetEnv("EMBEDDER", e.Embedder)
	e.LLMProvider = GetEnv("LLM_PROVIDER", e.LLMProvider)
	e.ChatModel = GetEnv("CHAT_MODEL", e.ChatModel)
	e.ClassifierModel = GetEnv("CLASSIFIER_MODEL", e.ClassifierModel)
	e.LLMTimeoutSeconds = getEnvInt("LLM_TIMEOUT_SECONDS", e.LLMTimeoutSeconds)
	e.RequestsPerSecond = getEnvFloat("LLM_REQUESTS_PER_SECOND", e.RequestsPerSecond)
	e.IngestConcurrency = getEnvInt("INGEST_CONCURRENCY", e.IngestConcurrency)
}

// Validate fails fast on values the engine cannot run with.
func (e Engine) Validate() error {
	switch {
	case e.ChunkSize <= 0:
		return &Error{Field: "chunk_size", Reason: "must be positive"}
	case e.ChunkOverlap < 0:
		return &Error{Field: "chunk_overlap", Reason: "must not be negative"}
	case e.ChunkOverlap >= e.ChunkSize:
		return &Error{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	case e.TopK <= 0:
		return &Error{Field: "top_k", Reason: "must be positive"}
	case e.EmbeddingDim <= 0:
		return &Error{Field: "embedding_dim", Reason: "must be positive"}
	case e.Embedder != "hash" && e.Embedder != "completion":
		return &Error{Field: "embedder", Reason: fmt.Sprintf("unknown embedder %q", e.Embedder)}
	case e.LLMProvider != "vertex" && e.LLMProvider != "groq":
		return &Error{Field: "llm_provider", Reason: fmt.Sprintf("unknown provider %q", e.LLMProvider)}
	case e.IngestConcurrency <= 0:
		return &Error{Field: "ingest_concurrency", Reason: "must be positive"}
	}
	return nil
}

// LLMTimeout returns the per-call deadline for completion requests.
func (e Engine) LLMTimeout() time.Duration {
	return time.Duration(e.LLMTimeoutSeconds) * time.Second
}

// RequireCloud checks the variables a deployed function cannot run without.
func (c Cloud) RequireCloud(needBucket bool) error {
	if c.ProjectID == "" {
		return &Error{Field: "PROJECT_ID", Reason: "environment variable must be set"}
	}
	if needBucket && c.DocumentsBucket == "" {
		return &Error{Field: "DOCUMENTS_BUCKET", Reason: "environment variable must be set"}
	}
	return nil
}
