// Package ingestion runs uploaded PDFs through extraction, classification,
// storage and metadata creation, and tracks each file's progress.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusUploading  Status = "uploading"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindUpload       ErrorKind = "upload"
	KindMetadata     ErrorKind = "metadata"
	KindCanceled     ErrorKind = "canceled"
)

var (
	ErrUnsupportedType = errors.New("only PDF files are supported")
	ErrEmptyBatch      = errors.New("batch has no files")
	ErrMissingOwner    = errors.New("batch has no owner")
	ErrItemNotFound    = errors.New("queue item not found")
	ErrItemActive      = errors.New("queue item is still being processed")
)

// Item is a snapshot of one queued file.
type Item struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	Subject    string    `json:"subject,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
	DocumentID string    `json:"documentId,omitempty"`
}

// File is one uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Batch is a set of files submitted together by one owner. Subjects is the
// owner's subject vocabulary used for classification.
type Batch struct {
	OwnerID  string
	Subjects []string
	Files    []File
}

// Event is published whenever an item changes. Removed is set when a
// completed item is pruned or an item is dismissed.
type Event struct {
	Item    Item
	Removed bool
}

// Options configures a Queue. Objects and Metadata are required.
type Options struct {
	Extractor   TextExtractor
	Classifier  SubjectClassifier
	Objects     ObjectStore
	Metadata    MetadataStore
	Notifier    Notifier
	Collection  string
	Concurrency int
	PruneAfter  time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Queue owns the upload items of one client session.
type Queue struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	items map[string]*Item
	order []string
	subs  map[*subscriber]struct{}
}

func NewQueue(opts Options) (*Queue, error) {
	if opts.Objects == nil || opts.Metadata == nil {
		return nil, errors.New("ingestion queue requires an object store and a metadata store")
	}
	if opts.Collection == "" {
		opts.Collection = "documents"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PruneAfter <= 0 {
		opts.PruneAfter = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		opts:   opts,
		logger: logger,
		items:  make(map[string]*Item),
		subs:   make(map[*subscriber]struct{}),
	}, nil
}

// Run tracks one submitted batch.
type Run struct {
	ids     []string
	skipped []string
	done    chan struct{}
	mu      sync.Mutex
	results map[string]Item
}

// Skipped returns the names of files left out of the batch because they
// are not PDFs.
func (r *Run) Skipped() []string { return slices.Clone(r.skipped) }

// Done is closed once every item of the batch is terminal.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the batch finishes and returns the final state of each
// queued item in file order. Results are kept even after items are pruned.
func (r *Run) Wait() []Item {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.results[id]
	}
	return out
}

func (r *Run) record(it Item) {
	r.mu.Lock()
	r.results[it.ID] = it
	r.mu.Unlock()
}

// IsPDF reports whether f looks like a PDF by MIME type or extension.
func IsPDF(f File) bool {
	if f.ContentType != "" {
		return strings.EqualFold(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]), "application/pdf")
	}
	return strings.EqualFold(filepath.Ext(f.Name), ".pdf")
}

// Submit enqueues one pending item per PDF in the batch and starts
// processing. Files that are not PDFs are skipped and reported by
// Run.Skipped; ErrUnsupportedType is returned only when no PDF remains.
// ctx bounds the whole run.
func (q *Queue) Submit(ctx context.Context, b Batch) (*Run, error) {
	if strings.TrimSpace(b.OwnerID) == "" {
		return nil, ErrMissingOwner
	}
	if len(b.Files) == 0 {
		return nil, ErrEmptyBatch
	}
	var skipped []string
	pdfs := make([]File, 0, len(b.Files))
	for _, f := range b.Files {
		if IsPDF(f) {
			pdfs = append(pdfs, f)
		} else {
			skipped = append(skipped, f.Name)
		}
	}
	if len(pdfs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, strings.Join(skipped, ", "))
	}
	if len(skipped) > 0 {
		q.logger.Warn("Skipping files that are not PDFs.", "ownerId", b.OwnerID, "files", skipped)
	}
	b.Files = pdfs

	run := &Run{
		ids:     make([]string, len(b.Files)),
		skipped: skipped,
		done:    make(chan struct{}),
		results: make(map[string]Item, len(b.Files)),
	}
	created := make([]Item, len(b.Files))
	q.mu.Lock()
	for i, f := range b.Files {
		it := &Item{
			ID:       uuid.NewString(),
			FileName: f.Name,
			Size:     int64(len(f.Data)),
			Status:   StatusPending,
		}
		q.items[it.ID] = it
		run.ids[i] = it.ID
		created[i] = *it
		run.results[it.ID] = *it
	}
	q.order = append(slices.Clone(run.ids), q.order...)
	q.mu.Unlock()

	for _, it := range created {
		q.publish(Event{Item: it}, true)
	}
	q.logger.Info("Batch submitted.", "ownerId", b.OwnerID, "files", len(b.Files))

	go func() {
		defer close(run.done)
		var eg errgroup.Group
		eg.SetLimit(q.opts.Concurrency)
		for i, f := range b.Files {
			id := run.ids[i]
			eg.Go(func() error {
				q.process(ctx, run, id, b, f)
				return nil
			})
		}
		_ = eg.Wait()
	}()
	return run, nil
}

// Snapshot returns copies of all items, newest batch first.
func (q *Queue) Snapshot() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, 0, len(q.order))
	for _, id := range q.order {
		if it, ok := q.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out
}

// Item returns a copy of one item.
func (q *Queue) Item(id string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Dismiss removes a terminal item from the queue.
func (q *Queue) Dismiss(id string) error {
	q.mu.Lock()
	it, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		return ErrItemNotFound
	}
	if !it.Status.Terminal() {
		q.mu.Unlock()
		return ErrItemActive
	}
	removed := q.removeLocked(id)
	q.mu.Unlock()
	q.publish(Event{Item: removed, Removed: true}, true)
	return nil
}

func (q *Queue) prune(id string) {
	q.mu.Lock()
	it, ok := q.items[id]
	if !ok || it.Status != StatusCompleted {
		q.mu.Unlock()
		return
	}
	removed := q.removeLocked(id)
	q.mu.Unlock()
	q.publish(Event{Item: removed, Removed: true}, true)
}

func (q *Queue) removeLocked(id string) Item {
	it := *q.items[id]
	delete(q.items, id)
	q.order = slices.DeleteFunc(q.order, func(s string) bool { return s == id })
	return it
}

// update applies fn to the item under the lock and publishes the result.
// Terminal items are never changed again.
func (q *Queue) update(run *Run, id string, fn func(it *Item) bool) (Item, bool) {
	q.mu.Lock()
	it, ok := q.items[id]
	if !ok || it.Status.Terminal() {
		q.mu.Unlock()
		return Item{}, false
	}
	before := it.Status
	if !fn(it) {
		q.mu.Unlock()
		return *it, false
	}
	snap := *it
	q.mu.Unlock()

	run.record(snap)
	q.publish(Event{Item: snap}, snap.Status != before)
	return snap, true
}

func (q *Queue) setStatus(run *Run, id string, s Status) {
	q.update(run, id, func(it *Item) bool {
		it.Status = s
		return true
	})
}

func (q *Queue) setProgress(run *Run, id string, pct int) {
	pct = min(max(pct, 0), 100)
	q.update(run, id, func(it *Item) bool {
		if it.Status != StatusUploading || pct <= it.Progress {
			return false
		}
		it.Progress = pct
		return true
	})
}

func (q *Queue) fail(run *Run, id string, kind ErrorKind, msg string) {
	q.update(run, id, func(it *Item) bool {
		it.Status = StatusFailed
		it.Progress = 0
		it.ErrorKind = kind
		it.Error = msg
		return true
	})
}

func (q *Queue) complete(run *Run, id, documentID string) {
	_, ok := q.update(run, id, func(it *Item) bool {
		it.Status = StatusCompleted
		it.Progress = 100
		it.DocumentID = documentID
		return true
	})
	if ok {
		time.AfterFunc(q.opts.PruneAfter, func() { q.prune(id) })
	}
}
