package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
	"github.com/Lllllllleong/documentintelligence/internal/rag"
)

// AskQuestionFunction answers a question about one page of a document.
type AskQuestionFunction struct {
	pages    *PageSource
	embedder rag.Embedder
	answerer *rag.Answerer
	engine   config.Engine
}

// NewAskQuestion creates an AskQuestionFunction backed by Firestore, Cloud
// Storage and the configured completion provider.
func NewAskQuestion(ctx context.Context) (*AskQuestionFunction, error) {
	rt, err := newCloudRuntime(ctx, true)
	if err != nil {
		return nil, err
	}
	pages := &PageSource{
		Metadata:   rt.metadata,
		Objects:    rt.documents,
		Extractor:  pdftext.Extractor{},
		Collection: rt.cfg.Cloud.DocumentsCollection,
	}
	f := NewAskQuestionWith(pages, rt.completer, rt.cfg.Engine)
	slog.Info("Ask question logic initialized.", "provider", rt.cfg.Engine.LLMProvider, "embedder", rt.cfg.Engine.Embedder)
	return f, nil
}

// NewAskQuestionWith wires an AskQuestionFunction from explicit dependencies.
func NewAskQuestionWith(pages *PageSource, completer llm.Completer, engine config.Engine) *AskQuestionFunction {
	answerer := rag.NewAnswerer(completer, ModelFor(engine, engine.ChatModel))
	answerer.TopK = engine.TopK
	return &AskQuestionFunction{
		pages:    pages,
		embedder: NewEmbedder(engine, completer),
		answerer: answerer,
		engine:   engine,
	}
}

// Process builds a retrieval scope over the requested page and answers the
// question from it.
func (f *AskQuestionFunction) Process(ctx context.Context, req *models.AskQuestionRequest) (*models.AskQuestionResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "pageNumber", req.PageNumber, "userId", req.UserID)
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, rag.ErrEmptyQuestion)
	}
	logCtx.Info("Starting page answer.")

	_, text, err := f.pages.Load(ctx, req.PageRequest)
	if err != nil {
		logCtx.Error("Failed to load page.", "error", err)
		return nil, err
	}

	scope, err := rag.NewScope(f.embedder, f.engine.ChunkSize, f.engine.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if err := scope.Initialize(ctx, text); err != nil {
		logCtx.Error("Failed to index page.", "error", err)
		return nil, fmt.Errorf("failed to index page: %w", err)
	}

	answer, err := f.answerer.Answer(ctx, scope, req.Question)
	if err != nil {
		logCtx.Error("Failed to answer question.", "error", err, "transient", llm.IsTransient(err))
		return nil, err
	}

	chunks := make([]string, len(answer.Sources))
	for i, c := range answer.Sources {
		chunks[i] = c.Text
	}
	logCtx.Info("Answer complete.", "chunks", scope.Len(), "sources", len(chunks))
	return &models.AskQuestionResponse{
		Status:         "success",
		Answer:         answer.Text,
		RelevantChunks: chunks,
	}, nil
}
