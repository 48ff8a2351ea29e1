package domain

import "time"

// DocumentType names the kind of supporting document.
type DocumentType string

const (
	DocumentTypeID         DocumentType = "id"
	DocumentTypeDegree     DocumentType = "degree"
	DocumentTypeExperience DocumentType = "experience"
	DocumentTypeTraining   DocumentType = "training"
	DocumentTypeCV         DocumentType = "cv"
	DocumentTypeOther      DocumentType = "other"
)

// ValidDocumentTypes returns all recognised document types.
func ValidDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeID, DocumentTypeDegree, DocumentTypeExperience,
		DocumentTypeTraining, DocumentTypeCV, DocumentTypeOther,
	}
}

// IsValid checks if the document type is recognised.
func (t DocumentType) IsValid() bool {
	for _, valid := range ValidDocumentTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// DocumentStatus is the verification state of a document version.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentVerified DocumentStatus = "verified"
	DocumentRejected DocumentStatus = "rejected"
)

// DocumentRef is one version of a supporting document in the verification
// ledger. Re-submission after rejection creates a new version rather than
// mutating the rejected one, so history is preserved.
type DocumentRef struct {
	ID              string         `db:"id" json:"id"`
	ApplicationID   string         `db:"application_id" json:"application_id"`
	Type            DocumentType   `db:"doc_type" json:"type"`
	Name            string         `db:"name" json:"name"`
	Version         int            `db:"version" json:"version"`
	SupersedesID    *string        `db:"supersedes_id" json:"supersedes_id,omitempty"`
	Status          DocumentStatus `db:"status" json:"status"`
	Required        bool           `db:"required" json:"required"`
	UploadDate      time.Time      `db:"upload_date" json:"upload_date"`
	VerifierID      *string        `db:"verifier_id" json:"verifier_id,omitempty"`
	VerifiedAt      *time.Time     `db:"verified_at" json:"verified_at,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// LatestByType reduces a set of document versions to the latest version per
// document type.
func LatestByType(docs []*DocumentRef) map[DocumentType]*DocumentRef {
	latest := make(map[DocumentType]*DocumentRef)
	for _, d := range docs {
		cur, ok := latest[d.Type]
		if !ok || d.Version > cur.Version {
			latest[d.Type] = d
		}
	}
	return latest
}
