package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/gcp"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
	"github.com/Lllllllleong/documentintelligence/internal/rag"
)

// MetadataStore is the record store used by the functions. gcp.MetadataStore
// implements it.
type MetadataStore interface {
	Create(ctx context.Context, collection string, record any) (string, error)
	Get(ctx context.Context, collection, id string, dst any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q gcp.Query, fn func(id string, decode func(dst any) error) error) error
}

// ObjectStore is the file store used by the functions. gcp.ObjectStore
// implements it.
type ObjectStore interface {
	Get(ctx context.Context, locator string) ([]byte, error)
	Delete(ctx context.Context, locator string) error
}

// PageExtractor counts pages and reads the text of one page.
type PageExtractor interface {
	PageCount(data []byte) (int, error)
	PageText(data []byte, page int) (string, error)
}

// PageSource loads the text of one page of an owned, stored document.
type PageSource struct {
	Metadata   MetadataStore
	Objects    ObjectStore
	Extractor  PageExtractor
	Collection string
}

// Load checks the request, verifies ownership and extracts the page text.
func (p *PageSource) Load(ctx context.Context, req models.PageRequest) (models.Document, string, error) {
	if req.UserID == "" || req.DocumentID == "" {
		return models.Document{}, "", fmt.Errorf("%w: userId and documentId are required", ErrInvalidRequest)
	}
	if req.PageNumber < 1 {
		return models.Document{}, "", fmt.Errorf("%w: pageNumber must be at least 1", ErrInvalidRequest)
	}
	doc, err := ownedDocument(ctx, p.Metadata, p.Collection, req.UserID, req.DocumentID)
	if err != nil {
		return models.Document{}, "", err
	}
	if doc.IsExternal || doc.StoragePath == "" {
		return doc, "", fmt.Errorf("%w: document %s has no stored file", ErrInvalidRequest, doc.ID)
	}
	data, err := p.Objects.Get(ctx, doc.StoragePath)
	if err != nil {
		return doc, "", err
	}
	pages, err := p.Extractor.PageCount(data)
	if err != nil {
		return doc, "", fmt.Errorf("failed to read document %s: %w", doc.ID, err)
	}
	if req.PageNumber > pages {
		return doc, "", fmt.Errorf("%w: page %d of %d", pdftext.ErrPageOutOfRange, req.PageNumber, pages)
	}
	text, err := p.Extractor.PageText(data, req.PageNumber)
	if err != nil {
		return doc, "", fmt.Errorf("failed to extract page %d: %w", req.PageNumber, err)
	}
	return doc, text, nil
}

func ownedDocument(ctx context.Context, store MetadataStore, collection, userID, docID string) (models.Document, error) {
	var doc models.Document
	if err := store.Get(ctx, collection, docID, &doc); err != nil {
		return doc, err
	}
	doc.ID = docID
	if doc.UserID != userID {
		return doc, ErrForbidden
	}
	return doc, nil
}

// cloudRuntime holds the clients shared by a function instance.
type cloudRuntime struct {
	cfg       *config.Config
	metadata  *gcp.MetadataStore
	documents *gcp.ObjectStore
	storage   *storage.Client
	completer llm.Completer
}

// newCloudRuntime loads configuration and creates the GCP clients. The
// completer is created only when withCompleter is set.
func newCloudRuntime(ctx context.Context, withCompleter bool) (*cloudRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Cloud.RequireCloud(true); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.Cloud.ProjectID)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	rt := &cloudRuntime{
		cfg:       cfg,
		metadata:  gcp.NewMetadataStore(firestoreClient),
		documents: gcp.NewObjectStore(storageClient, cfg.Cloud.DocumentsBucket, cfg.Cloud.SignedURLTTL),
		storage:   storageClient,
	}
	if withCompleter {
		rt.completer, err = NewCompleter(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// NewCompleter builds the configured completion provider behind a rate
// limit and per-call timeout.
func NewCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	var base llm.Completer
	switch cfg.Engine.LLMProvider {
	case "groq":
		groq, err := llm.NewGroqClient(cfg.Cloud.GroqAPIKey, cfg.Cloud.GroqModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create groq client: %w", err)
		}
		base = groq
	default:
		vertex, err := gcp.NewVertexClient(ctx, cfg.Cloud.ProjectID, cfg.Cloud.VertexAIRegion, cfg.Engine.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		base = vertex
	}
	return llm.NewThrottled(base, cfg.Engine.RequestsPerSecond, 1, cfg.Engine.LLMTimeout()), nil
}

// NewEmbedder returns the configured chunk embedder. The completion-backed
// embedder always falls back to the hashed one.
func NewEmbedder(engine config.Engine, completer llm.Completer) rag.Embedder {
	hashed := rag.NewHashEmbedder(engine.EmbeddingDim)
	if engine.Embedder != "completion" || completer == nil {
		return hashed
	}
	return &rag.FallbackEmbedder{
		Primary: &rag.CompletionEmbedder{
			Completer:   completer,
			Model:       ModelFor(engine, engine.ChatModel),
			Dim:         engine.EmbeddingDim,
			Concurrency: 4,
		},
		Fallback: hashed,
		Logger:   slog.Default(),
	}
}

// ModelFor returns name for Vertex and an empty model (provider default)
// for Groq, whose model is fixed by GROQ_MODEL.
func ModelFor(engine config.Engine, name string) string {
	if engine.LLMProvider == "groq" {
		return ""
	}
	return name
}
