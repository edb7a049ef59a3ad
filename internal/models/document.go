package models

import "time"

// Reserved subject labels. Users cannot create subjects with these names.
const (
	DefaultSubject  = "Uncategorized"
	ExternalSubject = "External Resources"
)

// Document represents the metadata record for a stored or linked PDF in Firestore.
// It is created once ingestion succeeds; only the subject may change afterwards.
type Document struct {
	ID           string    `firestore:"-" json:"id"`
	UserID       string    `firestore:"userId" json:"userId"`
	Name         string    `firestore:"name" json:"name"`
	OriginalName string    `firestore:"originalName" json:"originalName"`
	URL          string    `firestore:"url" json:"url"`
	Subject      string    `firestore:"subject" json:"subject"`
	StoragePath  string    `firestore:"storagePath,omitempty" json:"storagePath,omitempty"`
	Size         int64     `firestore:"size,omitempty" json:"size,omitempty"`
	Type         string    `firestore:"type,omitempty" json:"type,omitempty"`
	IsExternal   bool      `firestore:"isExternal" json:"isExternal"`
	Source       string    `firestore:"source,omitempty" json:"source,omitempty"`
	UploadedAt   time.Time `firestore:"uploadedAt" json:"uploadedAt"`
}

// Subject is a user-defined folder label used for classification.
type Subject struct {
	ID        string    `firestore:"-" json:"id"`
	Name      string    `firestore:"name" json:"name"`
	UserID    string    `firestore:"userId" json:"userId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}
