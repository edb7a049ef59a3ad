package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/gcp"
	"github.com/Lllllllleong/documentintelligence/internal/pdftext"
)

// memStore is an in-memory MetadataStore. Filters compare JSON field values.
type memStore struct {
	mu      sync.Mutex
	records map[string]map[string]any
	next    int
}

func newMemStore() *memStore { return &memStore{records: make(map[string]map[string]any)} }

func (m *memStore) put(collection, id string, record any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[collection] == nil {
		m.records[collection] = make(map[string]any)
	}
	m.records[collection][id] = record
}

func (m *memStore) Create(_ context.Context, collection string, record any) (string, error) {
	m.mu.Lock()
	m.next++
	id := fmt.Sprintf("%s-%d", collection, m.next)
	m.mu.Unlock()
	m.put(collection, id, record)
	return id, nil
}

func (m *memStore) Get(_ context.Context, collection, id string, dst any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, gcp.ErrNotFound)
	}
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(rec))
	return nil
}

func (m *memStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[collection][id]
	if !ok {
		return gcp.ErrNotFound
	}
	asMap := fields2map(rec)
	for k, v := range fields {
		asMap[k] = v
	}
	raw, _ := json.Marshal(asMap)
	ptr := reflect.New(reflect.TypeOf(rec))
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return err
	}
	m.records[collection][id] = ptr.Elem().Interface()
	return nil
}

func (m *memStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[collection], id)
	return nil
}

func (m *memStore) Query(_ context.Context, collection string, q gcp.Query, fn func(string, func(any) error) error) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.records[collection]))
	for id := range m.records[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	recs := make([]any, len(ids))
	for i, id := range ids {
		recs[i] = m.records[collection][id]
	}
	m.mu.Unlock()

	for i, rec := range recs {
		fields := fields2map(rec)
		match := true
		for _, f := range q.Filters {
			if fmt.Sprint(fields[f.Path]) != fmt.Sprint(f.Value) {
				match = false
			}
		}
		if !match {
			continue
		}
		err := fn(ids[i], func(dst any) error {
			reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(rec))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) all(collection string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.records[collection]))
	for k, v := range m.records[collection] {
		out[k] = v
	}
	return out
}

func fields2map(rec any) map[string]any {
	raw, _ := json.Marshal(rec)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// memObjects is an in-memory object store usable as both the document
// store and the inbox.
type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newMemObjects() *memObjects { return &memObjects{objects: make(map[string][]byte)} }

func (m *memObjects) Put(_ context.Context, path string, r io.Reader, _ int64, _ string, progress func(int64)) (string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", err
	}
	progress(n)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = buf.Bytes()
	return path, nil
}

func (m *memObjects) DownloadURL(_ context.Context, locator string) (string, error) {
	return "https://signed.example/" + locator, nil
}

func (m *memObjects) Get(_ context.Context, locator string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[locator]
	if !ok {
		return nil, fmt.Errorf("%s: %w", locator, gcp.ErrObjectNotFound)
	}
	return data, nil
}

func (m *memObjects) Delete(_ context.Context, locator string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, locator)
	return nil
}

func (m *memObjects) has(locator string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[locator]
	return ok
}

// textPages treats the stored bytes as the text of a single-page document.
// PageText only serves page 1; callers must check PageCount first.
type textPages struct{}

func (textPages) PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, pdftext.ErrInvalidPDF
	}
	return 1, nil
}

func (textPages) PageText(data []byte, page int) (string, error) {
	if page != 1 {
		return "", errors.New("page text read past the last page")
	}
	return string(data), nil
}

func testCloud() config.Cloud {
	return config.Cloud{
		DocumentsCollection:  "documents",
		SubjectsCollection:   "subjects",
		QuizCollection:       "quizAttempts",
		IssuedQuizCollection: "quizzes",
	}
}
