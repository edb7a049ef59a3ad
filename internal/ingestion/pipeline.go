package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/models"
)

const (
	classifyPages = 5
	metadataError = "Failed to save document data."
)

// TextExtractor checks that a file is a readable PDF and pulls the leading
// text used for classification.
type TextExtractor interface {
	Validate(data []byte) error
	LeadingText(data []byte, maxPages, maxWords int) (string, error)
}

// SubjectClassifier picks a subject for a document's text.
type SubjectClassifier interface {
	Classify(ctx context.Context, text string, known []string) string
}

// ObjectStore stores file bytes. progress receives the cumulative number of
// bytes written and may be called from another goroutine.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string, progress func(written int64)) (string, error)
	DownloadURL(ctx context.Context, locator string) (string, error)
	Delete(ctx context.Context, locator string) error
}

// MetadataStore creates records and returns their generated id.
type MetadataStore interface {
	Create(ctx context.Context, collection string, record any) (string, error)
}

// Notifier is told about every document created by the queue.
type Notifier interface {
	DocumentCreated(ctx context.Context, doc models.Document) error
}

// StoragePath returns the object path for an uploaded file:
// documents/{owner}/{subject}/{base}_{unixMillis}{ext}.
func StoragePath(ownerID, subject, fileName string, at time.Time) (path, storedName string) {
	base := filepath.Base(fileName)
	ext := filepath.Ext(base)
	storedName = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, ext), at.UnixMilli(), ext)
	return fmt.Sprintf("documents/%s/%s/%s", ownerID, subject, storedName), storedName
}

func (q *Queue) process(ctx context.Context, run *Run, id string, b Batch, f File) {
	logCtx := q.logger.With("itemId", id, "fileName", f.Name, "ownerId", b.OwnerID)
	if ctx.Err() != nil {
		q.fail(run, id, KindCanceled, "Upload canceled.")
		return
	}
	q.setStatus(run, id, StatusProcessing)

	if len(f.Data) == 0 {
		q.fail(run, id, KindInvalidInput, "File is empty.")
		return
	}
	if q.opts.Extractor != nil {
		if err := q.opts.Extractor.Validate(f.Data); err != nil {
			logCtx.Warn("Rejecting unreadable PDF.", "error", err)
			q.fail(run, id, KindInvalidInput, "File is not a readable PDF.")
			return
		}
	}

	subject := q.classify(ctx, logCtx, f, b.Subjects)
	if ctx.Err() != nil {
		q.fail(run, id, KindCanceled, "Upload canceled.")
		return
	}
	q.update(run, id, func(it *Item) bool {
		it.Subject = subject
		it.Status = StatusUploading
		it.Progress = 0
		return true
	})

	now := q.opts.Now()
	path, storedName := StoragePath(b.OwnerID, subject, f.Name, now)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	size := int64(len(f.Data))
	locator, err := q.opts.Objects.Put(ctx, path, bytes.NewReader(f.Data), size, contentType, func(written int64) {
		q.setProgress(run, id, int(written*100/size))
	})
	if err != nil {
		if ctx.Err() != nil {
			q.fail(run, id, KindCanceled, "Upload canceled.")
			return
		}
		logCtx.Error("Upload failed.", "error", err)
		q.fail(run, id, KindUpload, fmt.Sprintf("Upload failed: %v", err))
		return
	}
	q.setProgress(run, id, 100)

	doc := models.Document{
		UserID:       b.OwnerID,
		Name:         storedName,
		OriginalName: f.Name,
		Subject:      subject,
		StoragePath:  locator,
		Size:         size,
		Type:         contentType,
		UploadedAt:   now.UTC(),
	}
	doc.URL, err = q.opts.Objects.DownloadURL(ctx, locator)
	if err == nil {
		doc.ID, err = q.opts.Metadata.Create(ctx, q.opts.Collection, doc)
	}
	if err != nil {
		logCtx.Error("Failed to save document data, removing stored object.", "error", err, "path", locator)
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := q.opts.Objects.Delete(cleanupCtx, locator); derr != nil {
			logCtx.Warn("Failed to remove orphaned object.", "error", derr, "path", locator)
		}
		kind := KindMetadata
		if errors.Is(err, context.Canceled) {
			kind = KindCanceled
		}
		q.fail(run, id, kind, metadataError)
		return
	}

	if q.opts.Notifier != nil {
		if nerr := q.opts.Notifier.DocumentCreated(context.WithoutCancel(ctx), doc); nerr != nil {
			logCtx.Warn("Document notification failed.", "error", nerr, "documentId", doc.ID)
		}
	}
	q.complete(run, id, doc.ID)
	logCtx.Info("Document ingested.", "documentId", doc.ID, "subject", subject)
}

// classify extracts leading text and classifies it. Neither step can fail
// the item; a panicking classifier counts as a failed classification.
func (q *Queue) classify(ctx context.Context, logCtx *slog.Logger, f File, known []string) (subject string) {
	subject = models.DefaultSubject
	if q.opts.Classifier == nil {
		return subject
	}
	var text string
	if q.opts.Extractor != nil {
		var err error
		text, err = q.opts.Extractor.LeadingText(f.Data, classifyPages, ClassifierWordLimit)
		if err != nil {
			logCtx.Warn("Text extraction failed, classifying without text.", "error", err)
			text = ""
		}
	}
	defer func() {
		if p := recover(); p != nil {
			logCtx.Warn("Classifier panicked, using default subject.", "panic", p)
			subject = models.DefaultSubject
		}
	}()
	if s := strings.TrimSpace(q.opts.Classifier.Classify(ctx, text, known)); s != "" {
		subject = s
	}
	return subject
}
