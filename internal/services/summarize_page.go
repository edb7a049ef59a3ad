package services

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
	"github.com/Lllllllleong/documentintelligence/internal/rag"
)

// SummarizePageFunction writes a short summary of one page.
type SummarizePageFunction struct {
	pages      *PageSource
	summarizer *rag.Summarizer
}

func NewSummarizePage(ctx context.Context) (*SummarizePageFunction, error) {
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
	return NewSummarizePageWith(pages, rt.completer, rt.cfg.Engine), nil
}

func NewSummarizePageWith(pages *PageSource, completer llm.Completer, engine config.Engine) *SummarizePageFunction {
	return &SummarizePageFunction{
		pages:      pages,
		summarizer: &rag.Summarizer{Completer: completer, Model: ModelFor(engine, engine.ChatModel)},
	}
}

func (f *SummarizePageFunction) Process(ctx context.Context, req *models.SummarizePageRequest) (*models.SummarizePageResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "pageNumber", req.PageNumber)
	_, text, err := f.pages.Load(ctx, req.PageRequest)
	if err != nil {
		logCtx.Error("Failed to load page.", "error", err)
		return nil, err
	}
	summary, err := f.summarizer.Summarize(ctx, text)
	if err != nil {
		logCtx.Error("Failed to summarize page.", "error", err)
		return nil, err
	}
	logCtx.Info("Summary complete.")
	return &models.SummarizePageResponse{Status: "success", Summary: summary}, nil
}
