package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectStore stores document files in one Cloud Storage bucket. Locators
// are object names within the bucket.
type ObjectStore struct {
	bucket *storage.BucketHandle
	name   string
	urlTTL time.Duration
	now    func() time.Time
}

func NewObjectStore(client *storage.Client, bucket string, urlTTL time.Duration) *ObjectStore {
	if urlTTL <= 0 {
		urlTTL = 7 * 24 * time.Hour
	}
	return &ObjectStore{bucket: client.Bucket(bucket), name: bucket, urlTTL: urlTTL, now: time.Now}
}

// Bucket returns the bucket name.
func (s *ObjectStore) Bucket() string { return s.name }

// Put writes r to path only if no object exists there yet. progress, when
// set, receives the cumulative bytes sent after each uploaded chunk; small
// objects go up in one request and report nothing.
func (s *ObjectStore) Put(ctx context.Context, path string, r io.Reader, _ int64, contentType string, progress func(written int64)) (string, error) {
	writer := s.bucket.Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	if progress != nil {
		writer.ProgressFunc = progress
	}

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return "", s.writeError(path, err)
	}
	if err := writer.Close(); err != nil {
		return "", s.writeError(path, err)
	}
	return path, nil
}

func (s *ObjectStore) writeError(path string, err error) error {
	if isPreconditionFailed(err) {
		return fmt.Errorf("%s: %w", path, ErrObjectExists)
	}
	return fmt.Errorf("failed to write gs://%s/%s: %w", s.name, path, err)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// DownloadURL returns a V4 signed GET URL for the object.
func (s *ObjectStore) DownloadURL(_ context.Context, locator string) (string, error) {
	url, err := s.bucket.SignedURL(locator, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: s.now().Add(s.urlTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %s: %w", locator, err)
	}
	return url, nil
}

// Get reads the whole object.
func (s *ObjectStore) Get(ctx context.Context, locator string) ([]byte, error) {
	rc, err := s.bucket.Object(locator).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", locator, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.name, locator, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.name, locator, err)
	}
	return data, nil
}

// Delete removes the object. A missing object is logged and ignored.
func (s *ObjectStore) Delete(ctx context.Context, locator string) error {
	err := s.bucket.Object(locator).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		slog.Warn("Object already deleted.", "bucket", s.name, "object", locator)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", s.name, locator, err)
	}
	return nil
}
