package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/config"
	"github.com/Lllllllleong/documentintelligence/internal/gcp"
	"github.com/Lllllllleong/documentintelligence/internal/models"
)

// DocumentsFunction manages a user's documents and subjects.
type DocumentsFunction struct {
	metadata MetadataStore
	objects  ObjectStore
	cloud    config.Cloud
	now      func() time.Time
}

func NewDocuments(ctx context.Context) (*DocumentsFunction, error) {
	rt, err := newCloudRuntime(ctx, false)
	if err != nil {
		return nil, err
	}
	return NewDocumentsWith(rt.metadata, rt.documents, rt.cfg.Cloud), nil
}

func NewDocumentsWith(metadata MetadataStore, objects ObjectStore, cloud config.Cloud) *DocumentsFunction {
	return &DocumentsFunction{metadata: metadata, objects: objects, cloud: cloud, now: time.Now}
}

// Process dispatches on req.Action.
func (f *DocumentsFunction) Process(ctx context.Context, req *models.ManageDocumentsRequest) (*models.ManageDocumentsResponse, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	logCtx := slog.With("userId", req.UserID, "action", req.Action)

	var (
		resp *models.ManageDocumentsResponse
		err  error
	)
	switch req.Action {
	case models.ActionListDocuments:
		resp, err = f.listDocuments(ctx, req.UserID)
	case models.ActionDeleteDocument:
		resp, err = f.deleteDocument(ctx, logCtx, req.UserID, req.DocumentID)
	case models.ActionReclassify:
		resp, err = f.reclassify(ctx, req.UserID, req.DocumentID, req.Subject)
	case models.ActionAddExternal:
		resp, err = f.addExternal(ctx, req)
	case models.ActionListSubjects:
		resp, err = f.listSubjects(ctx, req.UserID)
	case models.ActionAddSubject:
		resp, err = f.addSubject(ctx, req.UserID, req.Subject)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Action)
	}
	if err != nil {
		logCtx.Error("Document action failed.", "error", err)
		return nil, err
	}
	logCtx.Info("Document action complete.")
	return resp, nil
}

func (f *DocumentsFunction) userDocuments(ctx context.Context, userID string, extra ...gcp.Filter) ([]models.Document, error) {
	var docs []models.Document
	q := gcp.Query{Filters: append([]gcp.Filter{gcp.Where("userId", userID)}, extra...)}
	err := f.metadata.Query(ctx, f.cloud.DocumentsCollection, q, func(id string, decode func(any) error) error {
		var d models.Document
		if err := decode(&d); err != nil {
			return err
		}
		d.ID = id
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func (f *DocumentsFunction) listDocuments(ctx context.Context, userID string) (*models.ManageDocumentsResponse, error) {
	docs, err := f.userDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(docs, func(a, b models.Document) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	grouped := make(map[string][]models.Document)
	for _, d := range docs {
		subject := d.Subject
		if subject == "" {
			subject = models.DefaultSubject
		}
		grouped[subject] = append(grouped[subject], d)
	}
	return &models.ManageDocumentsResponse{Status: "success", FilesBySubject: grouped}, nil
}

// deleteDocument removes the record first and then the stored file. A
// failed file removal is reported but does not fail the request.
func (f *DocumentsFunction) deleteDocument(ctx context.Context, logCtx *slog.Logger, userID, docID string) (*models.ManageDocumentsResponse, error) {
	if docID == "" {
		return nil, fmt.Errorf("%w: documentId is required", ErrInvalidRequest)
	}
	doc, err := ownedDocument(ctx, f.metadata, f.cloud.DocumentsCollection, userID, docID)
	if err != nil {
		return nil, err
	}
	if err := f.metadata.Delete(ctx, f.cloud.DocumentsCollection, docID); err != nil {
		return nil, err
	}
	resp := &models.ManageDocumentsResponse{Status: "success", DocumentID: docID}
	if !doc.IsExternal && doc.StoragePath != "" {
		ok := true
		if err := f.objects.Delete(ctx, doc.StoragePath); err != nil {
			logCtx.Warn("Failed to delete stored file.", "error", err, "path", doc.StoragePath)
			ok = false
		}
		resp.StorageCleanupOK = &ok
	}
	return resp, nil
}

func (f *DocumentsFunction) reclassify(ctx context.Context, userID, docID, subject string) (*models.ManageDocumentsResponse, error) {
	subject = strings.TrimSpace(subject)
	if docID == "" || subject == "" {
		return nil, fmt.Errorf("%w: documentId and subject are required", ErrInvalidRequest)
	}
	if _, err := ownedDocument(ctx, f.metadata, f.cloud.DocumentsCollection, userID, docID); err != nil {
		return nil, err
	}
	canonical := ""
	if strings.EqualFold(subject, models.DefaultSubject) {
		canonical = models.DefaultSubject
	} else {
		subjects, err := f.userSubjects(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, s := range subjects {
			if strings.EqualFold(s.Name, subject) {
				canonical = s.Name
				break
			}
		}
	}
	if canonical == "" {
		return nil, fmt.Errorf("%w: unknown subject %q", ErrInvalidRequest, subject)
	}
	if err := f.metadata.Update(ctx, f.cloud.DocumentsCollection, docID, map[string]any{"subject": canonical}); err != nil {
		return nil, err
	}
	return &models.ManageDocumentsResponse{Status: "success", DocumentID: docID}, nil
}

func (f *DocumentsFunction) addExternal(ctx context.Context, req *models.ManageDocumentsRequest) (*models.ManageDocumentsResponse, error) {
	title := strings.TrimSpace(req.Title)
	link := strings.TrimSpace(req.URL)
	u, err := url.Parse(link)
	if title == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: a title and an http(s) url are required", ErrInvalidRequest)
	}
	existing, err := f.userDocuments(ctx, req.UserID, gcp.Where("url", link))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("link %s: %w", link, ErrConflict)
	}
	doc := models.Document{
		UserID:       req.UserID,
		Name:         title,
		OriginalName: title,
		URL:          link,
		Subject:      models.ExternalSubject,
		IsExternal:   true,
		Source:       strings.TrimSpace(req.Source),
		UploadedAt:   f.now().UTC(),
	}
	id, err := f.metadata.Create(ctx, f.cloud.DocumentsCollection, doc)
	if err != nil {
		return nil, err
	}
	return &models.ManageDocumentsResponse{Status: "success", DocumentID: id}, nil
}

func (f *DocumentsFunction) userSubjects(ctx context.Context, userID string) ([]models.Subject, error) {
	var subjects []models.Subject
	q := gcp.Query{Filters: []gcp.Filter{gcp.Where("userId", userID)}}
	err := f.metadata.Query(ctx, f.cloud.SubjectsCollection, q, func(id string, decode func(any) error) error {
		var s models.Subject
		if err := decode(&s); err != nil {
			return err
		}
		s.ID = id
		subjects = append(subjects, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(subjects, func(a, b models.Subject) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return subjects, nil
}

func (f *DocumentsFunction) listSubjects(ctx context.Context, userID string) (*models.ManageDocumentsResponse, error) {
	subjects, err := f.userSubjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.ManageDocumentsResponse{Status: "success", Subjects: subjects}, nil
}

func (f *DocumentsFunction) addSubject(ctx context.Context, userID, name string) (*models.ManageDocumentsResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: subject name is required", ErrInvalidRequest)
	}
	if strings.EqualFold(name, models.DefaultSubject) || strings.EqualFold(name, models.ExternalSubject) {
		return nil, fmt.Errorf("%w: %q is a reserved subject", ErrInvalidRequest, name)
	}
	subjects, err := f.userSubjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, s := range subjects {
		if strings.EqualFold(s.Name, name) {
			return nil, fmt.Errorf("subject %q: %w", name, ErrConflict)
		}
	}
	subject := models.Subject{Name: name, UserID: userID, CreatedAt: f.now().UTC()}
	id, err := f.metadata.Create(ctx, f.cloud.SubjectsCollection, subject)
	if err != nil {
		return nil, err
	}
	subject.ID = id
	return &models.ManageDocumentsResponse{Status: "success", Subjects: []models.Subject{subject}}, nil
}

// SubjectNames returns the names of a user's subjects, used as the
// classification vocabulary.
func SubjectNames(ctx context.Context, metadata MetadataStore, collection, userID string) ([]string, error) {
	var names []string
	q := gcp.Query{Filters: []gcp.Filter{gcp.Where("userId", userID)}}
	err := metadata.Query(ctx, collection, q, func(_ string, decode func(any) error) error {
		var s models.Subject
		if err := decode(&s); err != nil {
			return err
		}
		names = append(names, s.Name)
		return nil
	})
	return names, err
}
