package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/gcp"
	"github.com/Lllllllleong/documentintelligence/internal/ingestion"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
)

// GCSEvent is the payload of a Cloud Storage object finalized event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// IngestFunction ingests PDFs dropped into the inbox bucket under
// {userId}/{fileName}.
type IngestFunction struct {
	queue              *ingestion.Queue
	inbox              ObjectStore
	metadata           MetadataStore
	subjectsCollection string
}

// NewIngest creates the inbox-triggered ingestion function.
func NewIngest(ctx context.Context) (*IngestFunction, error) {
	return newIngest(ctx, true)
}

// NewBatchIngest creates an IngestFunction without an inbox, for callers
// that submit files directly with SubmitFiles.
func NewBatchIngest(ctx context.Context) (*IngestFunction, error) {
	return newIngest(ctx, false)
}

func newIngest(ctx context.Context, withInbox bool) (*IngestFunction, error) {
	rt, err := newCloudRuntime(ctx, true)
	if err != nil {
		return nil, err
	}
	if withInbox && rt.cfg.Cloud.InboxBucket == "" {
		return nil, fmt.Errorf("INBOX_BUCKET environment variable must be set")
	}
	var notifier ingestion.Notifier
	if rt.cfg.Cloud.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, rt.cfg.Cloud.ProjectID, rt.cfg.Cloud.WorkflowLocation, rt.cfg.Cloud.WorkflowID)
		if err != nil {
			return nil, err
		}
		notifier = trigger
	}
	queue, err := NewIngestQueue(rt.cfg, rt.documents, rt.metadata, rt.completer, notifier)
	if err != nil {
		return nil, err
	}
	var inbox ObjectStore
	if withInbox {
		inbox = gcp.NewObjectStore(rt.storage, rt.cfg.Cloud.InboxBucket, rt.cfg.Cloud.SignedURLTTL)
	}
	slog.Info("Ingest logic initialized.", "inbox", rt.cfg.Cloud.InboxBucket, "workflowId", rt.cfg.Cloud.WorkflowID)
	return NewIngestWith(queue, inbox, rt.metadata, rt.cfg.Cloud.SubjectsCollection), nil
}

// NewIngestQueue builds the ingestion queue used by the function and the CLI.
func NewIngestQueue(cfg *config.Config, objects ingestion.ObjectStore, metadata ingestion.MetadataStore, completer llm.Completer, notifier ingestion.Notifier) (*ingestion.Queue, error) {
	return ingestion.NewQueue(ingestion.Options{
		Extractor:   pdftext.Extractor{},
		Classifier:  &ingestion.Classifier{Completer: completer, Model: ModelFor(cfg.Engine, cfg.Engine.ClassifierModel)},
		Objects:     objects,
		Metadata:    metadata,
		Notifier:    notifier,
		Collection:  cfg.Cloud.DocumentsCollection,
		Concurrency: cfg.Engine.IngestConcurrency,
		PruneAfter:  5 * time.Second,
	})
}

func NewIngestWith(queue *ingestion.Queue, inbox ObjectStore, metadata MetadataStore, subjectsCollection string) *IngestFunction {
	return &IngestFunction{queue: queue, inbox: inbox, metadata: metadata, subjectsCollection: subjectsCollection}
}

// Process ingests one inbox object. Inputs that can never succeed are
// dropped without error so the event is not redelivered.
func (f *IngestFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new inbox object.")

	owner, fileName, ok := strings.Cut(e.Name, "/")
	fileName = path.Base(fileName)
	if !ok || owner == "" || fileName == "" || fileName == "." {
		logCtx.Warn("Inbox object is not under a user prefix. Skipping.")
		return nil
	}
	logCtx = logCtx.With("userId", owner)

	data, err := f.inbox.Get(ctx, e.Name)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		logCtx.Info("Inbox object already consumed. Skipping.")
		return nil
	}
	if err != nil {
		logCtx.Error("Failed to download inbox object", "error", err)
		return err
	}

	subjects, err := SubjectNames(ctx, f.metadata, f.subjectsCollection, owner)
	if err != nil {
		logCtx.Error("Failed to load subjects", "error", err)
		return err
	}

	run, err := f.queue.Submit(ctx, ingestion.Batch{
		OwnerID:  owner,
		Subjects: subjects,
		Files:    []ingestion.File{{Name: fileName, ContentType: e.ContentType, Data: data}},
	})
	if errors.Is(err, ingestion.ErrUnsupportedType) {
		logCtx.Warn("Inbox object is not a PDF. Discarding.", "contentType", e.ContentType)
		f.consume(ctx, logCtx, e.Name)
		return nil
	}
	if err != nil {
		return err
	}

	item := run.Wait()[0]
	logCtx = logCtx.With("itemId", item.ID, "status", item.Status)
	switch {
	case item.Status == ingestion.StatusCompleted:
		logCtx.Info("Inbox object ingested.", "documentId", item.DocumentID, "subject", item.Subject)
		f.consume(ctx, logCtx, e.Name)
		return nil
	case item.ErrorKind == ingestion.KindInvalidInput:
		logCtx.Warn("Inbox object rejected.", "reason", item.Error)
		f.consume(ctx, logCtx, e.Name)
		return nil
	default:
		logCtx.Error("Ingestion failed.", "kind", item.ErrorKind, "reason", item.Error)
		return fmt.Errorf("ingestion of %s failed (%s): %s", e.Name, item.ErrorKind, item.Error)
	}
}

func (f *IngestFunction) consume(ctx context.Context, logCtx *slog.Logger, name string) {
	if err := f.inbox.Delete(context.WithoutCancel(ctx), name); err != nil {
		logCtx.Warn("Failed to remove inbox object.", "error", err)
	}
}

// SubmitFiles classifies files against the owner's subjects and queues them.
func (f *IngestFunction) SubmitFiles(ctx context.Context, owner string, files []ingestion.File) (*ingestion.Run, error) {
	subjects, err := SubjectNames(ctx, f.metadata, f.subjectsCollection, owner)
	if err != nil {
		return nil, err
	}
	return f.queue.Submit(ctx, ingestion.Batch{OwnerID: owner, Subjects: subjects, Files: files})
}

// Queue exposes the underlying queue.
func (f *IngestFunction) Queue() *ingestion.Queue { return f.queue }
