package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/ingestion"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngest(t *testing.T) (*IngestFunction, *memStore, *memObjects, *memObjects) {
	t.Helper()
	cfg := &config.Config{Engine: config.DefaultEngine(), Cloud: testCloud()}
	store := newMemStore()
	documents := newMemObjects()
	inbox := newMemObjects()
	completer := llm.CompleterFunc(func(context.Context, llm.Request) (string, error) { return "Biology", nil })
	queue, err := NewIngestQueue(cfg, documents, store, completer, nil)
	require.NoError(t, err)
	return NewIngestWith(queue, inbox, store, "subjects"), store, documents, inbox
}

func TestIngestStoresInboxObject(t *testing.T) {
	f, store, documents, inbox := newTestIngest(t)
	store.put("subjects", "s1", models.Subject{UserID: "u1", Name: "Biology"})
	inbox.objects["u1/cells.pdf"] = pdftest.Build("Cells divide by mitosis")

	err := f.Process(context.Background(), GCSEvent{Bucket: "inbox", Name: "u1/cells.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.False(t, inbox.has("u1/cells.pdf"))

	docs := store.all("documents")
	require.Len(t, docs, 1)
	for _, rec := range docs {
		doc := rec.(models.Document)
		assert.Equal(t, "u1", doc.UserID)
		assert.Equal(t, "cells.pdf", doc.OriginalName)
		assert.Equal(t, "Biology", doc.Subject)
		assert.Contains(t, doc.StoragePath, "documents/u1/Biology/cells_")
		assert.True(t, documents.has(doc.StoragePath))
		assert.Contains(t, doc.URL, doc.StoragePath)
	}
	assert.Empty(t, f.Queue().Snapshot()[0].Error)
}

func TestIngestDropsUnusableObjects(t *testing.T) {
	f, store, _, inbox := newTestIngest(t)
	inbox.objects["u1/notes.txt"] = []byte("hello")
	inbox.objects["u1/empty.pdf"] = []byte{}
	inbox.objects["u1/broken.pdf"] = []byte("%PDF-1.4 truncated upload")

	require.NoError(t, f.Process(context.Background(), GCSEvent{Name: "u1/notes.txt", ContentType: "text/plain"}))
	assert.False(t, inbox.has("u1/notes.txt"))

	require.NoError(t, f.Process(context.Background(), GCSEvent{Name: "u1/empty.pdf", ContentType: "application/pdf"}))
	assert.False(t, inbox.has("u1/empty.pdf"))

	require.NoError(t, f.Process(context.Background(), GCSEvent{Name: "u1/broken.pdf", ContentType: "application/pdf"}))
	assert.False(t, inbox.has("u1/broken.pdf"))

	require.NoError(t, f.Process(context.Background(), GCSEvent{Name: "orphan.pdf"}))
	require.NoError(t, f.Process(context.Background(), GCSEvent{Name: "u1/gone.pdf"}))
	assert.Empty(t, store.all("documents"))

	var kinds []ingestion.ErrorKind
	for _, it := range f.Queue().Snapshot() {
		kinds = append(kinds, it.ErrorKind)
	}
	assert.Equal(t, []ingestion.ErrorKind{ingestion.KindInvalidInput, ingestion.KindInvalidInput}, kinds)
}

func TestSubmitFilesUsesOwnerSubjects(t *testing.T) {
	f, store, _, _ := newTestIngest(t)
	store.put("subjects", "s1", models.Subject{UserID: "u1", Name: "Biology"})

	run, err := f.SubmitFiles(context.Background(), "u1", []ingestion.File{
		{Name: "a.pdf", Data: pdftest.Build("Mitochondria make ATP")},
		{Name: "notes.txt", Data: []byte("reminder")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, run.Skipped())
	items := run.Wait()
	require.Len(t, items, 1)
	assert.Equal(t, ingestion.StatusCompleted, items[0].Status)
	assert.Equal(t, "Biology", items[0].Subject)
}
