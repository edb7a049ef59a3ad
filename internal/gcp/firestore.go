package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// Filter is one equality or comparison clause of a Query.
type Filter struct {
	Path  string
	Op    string
	Value any
}

// Query selects records from one collection.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where is shorthand for an equality filter.
func Where(path string, value any) Filter {
	return Filter{Path: path, Op: "==", Value: value}
}

// MetadataStore keeps document, subject and quiz attempt records in Firestore.
type MetadataStore struct {
	client *firestore.Client
}

func NewMetadataStore(client *firestore.Client) *MetadataStore {
	return &MetadataStore{client: client}
}

// Create adds record to collection under a generated id.
func (m *MetadataStore) Create(ctx context.Context, collection string, record any) (string, error) {
	ref, _, err := m.client.Collection(collection).Add(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to create %s record: %w", collection, err)
	}
	return ref.ID, nil
}

// Get decodes the record with the given id into dst.
func (m *MetadataStore) Get(ctx context.Context, collection, id string, dst any) error {
	snap, err := m.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	if err := snap.DataTo(dst); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update sets the given top-level fields on an existing record.
func (m *MetadataStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, v := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}
	if _, err := m.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (m *MetadataStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query calls fn for every matching record in order. decode fills dst with
// the record's fields.
func (m *MetadataStore) Query(ctx context.Context, collection string, q Query, fn func(id string, decode func(dst any) error) error) error {
	fq := m.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Path, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", collection, err)
		}
		if err := fn(snap.Ref.ID, snap.DataTo); err != nil {
			return err
		}
	}
}
