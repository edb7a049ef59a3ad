package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Lllllllleong/documentintelligence/internal/models"
)

// textExtractor treats file bytes as their own text. "corrupt" fails
// validation and "unreadable" validates but yields no text.
type textExtractor struct{}

func (textExtractor) Validate(data []byte) error {
	if string(data) == "corrupt" {
		return errors.New("xref table not found")
	}
	return nil
}

func (textExtractor) LeadingText(data []byte, _, _ int) (string, error) {
	if string(data) == "unreadable" {
		return "", errors.New("broken xref")
	}
	return string(data), nil
}

type classifierFunc func(ctx context.Context, text string, known []string) string

func (f classifierFunc) Classify(ctx context.Context, text string, known []string) string {
	return f(ctx, text, known)
}

type memObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	putErr   error
	urlErr   error
	progress []int64
}

func newMemObjects() *memObjects { return &memObjects{objects: make(map[string][]byte)} }

func (m *memObjects) Put(ctx context.Context, path string, r io.Reader, size int64, _ string, progress func(int64)) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	progress(size / 2)
	progress(size / 4)
	progress(size)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = data
	return path, nil
}

func (m *memObjects) DownloadURL(_ context.Context, locator string) (string, error) {
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return "https://storage.example/" + locator, nil
}

func (m *memObjects) Delete(_ context.Context, locator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, locator)
	m.deleted = append(m.deleted, locator)
	return nil
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type memMetadata struct {
	mu      sync.Mutex
	docs    []models.Document
	failFor string
}

func (m *memMetadata) Create(_ context.Context, collection string, record any) (string, error) {
	doc, ok := record.(models.Document)
	if !ok {
		return "", fmt.Errorf("unexpected record %T", record)
	}
	if m.failFor != "" && doc.OriginalName == m.failFor {
		return "", errors.New("permission denied")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return fmt.Sprintf("%s-%d", collection, len(m.docs)), nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []string
}

func (n *recordingNotifier) DocumentCreated(_ context.Context, doc models.Document) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, doc.ID)
	return nil
}
