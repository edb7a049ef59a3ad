package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manage(t *testing.T, f *DocumentsFunction, req models.ManageDocumentsRequest) (*models.ManageDocumentsResponse, error) {
	t.Helper()
	return f.Process(context.Background(), &req)
}

func TestSubjects(t *testing.T) {
	store := newMemStore()
	f := NewDocumentsWith(store, newMemObjects(), testCloud())

	_, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddSubject, UserID: "u1", Subject: "physics"})
	require.NoError(t, err)
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddSubject, UserID: "u1", Subject: " Biology "})
	require.NoError(t, err)
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddSubject, UserID: "u2", Subject: "Art"})
	require.NoError(t, err)

	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddSubject, UserID: "u1", Subject: "PHYSICS"})
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddSubject, UserID: "u1", Subject: "uncategorized"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddSubject, UserID: "u1", Subject: "External Resources"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	resp, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionListSubjects, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, resp.Subjects, 2)
	assert.Equal(t, "Biology", resp.Subjects[0].Name)
	assert.Equal(t, "physics", resp.Subjects[1].Name)

	names, err := SubjectNames(context.Background(), store, "subjects", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Art"}, names)
}

func TestListDocumentsGroupsNewestFirst(t *testing.T) {
	store := newMemStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.put("documents", "a", models.Document{UserID: "u1", Name: "old", Subject: "Biology", UploadedAt: base})
	store.put("documents", "b", models.Document{UserID: "u1", Name: "new", Subject: "Biology", UploadedAt: base.Add(time.Hour)})
	store.put("documents", "c", models.Document{UserID: "u1", Name: "loose", UploadedAt: base})
	store.put("documents", "d", models.Document{UserID: "u2", Name: "theirs", Subject: "Biology", UploadedAt: base})
	f := NewDocumentsWith(store, newMemObjects(), testCloud())

	resp, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionListDocuments, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, resp.FilesBySubject["Biology"], 2)
	assert.Equal(t, "new", resp.FilesBySubject["Biology"][0].Name)
	assert.Equal(t, "b", resp.FilesBySubject["Biology"][0].ID)
	assert.Len(t, resp.FilesBySubject[models.DefaultSubject], 1)
}

func TestDeleteDocumentCascades(t *testing.T) {
	store := newMemStore()
	objects := newMemObjects()
	objects.objects["documents/u1/Biology/a.pdf"] = []byte("pdf")
	store.put("documents", "stored", models.Document{UserID: "u1", StoragePath: "documents/u1/Biology/a.pdf"})
	store.put("documents", "link", models.Document{UserID: "u1", IsExternal: true, URL: "https://example.com"})
	f := NewDocumentsWith(store, objects, testCloud())

	_, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionDeleteDocument, UserID: "u2", DocumentID: "stored"})
	assert.Equal(t, http.StatusForbidden, StatusCode(err))

	resp, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionDeleteDocument, UserID: "u1", DocumentID: "stored"})
	require.NoError(t, err)
	require.NotNil(t, resp.StorageCleanupOK)
	assert.True(t, *resp.StorageCleanupOK)
	assert.False(t, objects.has("documents/u1/Biology/a.pdf"))

	resp, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionDeleteDocument, UserID: "u1", DocumentID: "link"})
	require.NoError(t, err)
	assert.Nil(t, resp.StorageCleanupOK)
	assert.Empty(t, store.all("documents"))
}

func TestDeleteDocumentStorageFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	objects := newMemObjects()
	objects.deleteErr = assert.AnError
	store.put("documents", "stored", models.Document{UserID: "u1", StoragePath: "documents/u1/x.pdf"})
	f := NewDocumentsWith(store, objects, testCloud())

	resp, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionDeleteDocument, UserID: "u1", DocumentID: "stored"})
	require.NoError(t, err)
	assert.False(t, *resp.StorageCleanupOK)
	assert.Empty(t, store.all("documents"))
}

func TestReclassify(t *testing.T) {
	store := newMemStore()
	store.put("documents", "d1", models.Document{UserID: "u1", Subject: models.DefaultSubject})
	store.put("subjects", "s1", models.Subject{UserID: "u1", Name: "Chemistry"})
	f := NewDocumentsWith(store, newMemObjects(), testCloud())

	_, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionReclassify, UserID: "u1", DocumentID: "d1", Subject: "chemistry"})
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", store.all("documents")["d1"].(models.Document).Subject)

	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionReclassify, UserID: "u1", DocumentID: "d1", Subject: "Geology"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestAddExternalLink(t *testing.T) {
	store := newMemStore()
	f := NewDocumentsWith(store, newMemObjects(), testCloud())

	resp, err := manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddExternal, UserID: "u1", Title: "Lecture", URL: "https://youtu.be/abc", Source: "youtube"})
	require.NoError(t, err)
	doc := store.all("documents")[resp.DocumentID].(models.Document)
	assert.True(t, doc.IsExternal)
	assert.Equal(t, models.ExternalSubject, doc.Subject)

	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddExternal, UserID: "u1", Title: "Again", URL: "https://youtu.be/abc"})
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddExternal, UserID: "u2", Title: "Theirs", URL: "https://youtu.be/abc"})
	assert.NoError(t, err)
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionAddExternal, UserID: "u1", Title: "Bad", URL: "ftp://x"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestUnknownActionAndMissingUser(t *testing.T) {
	f := NewDocumentsWith(newMemStore(), newMemObjects(), testCloud())
	_, err := manage(t, f, models.ManageDocumentsRequest{Action: "rename", UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	_, err = manage(t, f, models.ManageDocumentsRequest{Action: models.ActionListDocuments})
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}
