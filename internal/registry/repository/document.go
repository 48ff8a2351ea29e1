package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/pkg/database"
	"github.com/certflow/certportal-backend/pkg/errors"
)

// DocumentRepository handles document verification ledger persistence
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
	id, application_id, doc_type, name, version, supersedes_id, status,
	required, upload_date, verifier_id, verified_at, rejection_reason,
	created_at, updated_at
`

// Create inserts a new document version
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.DocumentRef) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = domain.DocumentPending
	}
	if doc.Version == 0 {
		doc.Version = 1
	}

	query := `
		INSERT INTO documents (id, application_id, doc_type, name, version,
		                       supersedes_id, status, required, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		doc.ID, doc.ApplicationID, doc.Type, doc.Name, doc.Version,
		doc.SupersedesID, doc.Status, doc.Required, doc.UploadDate,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// GetByID gets a document version by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.DocumentRef, error) {
	var doc domain.DocumentRef
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("document")
		}
		return nil, err
	}
	return &doc, nil
}

// ListByApplication lists every document version for an application,
// oldest first.
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID string) ([]*domain.DocumentRef, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE application_id = $1
		ORDER BY doc_type, version ASC`

	var docs []*domain.DocumentRef
	if err := r.db.SelectContext(ctx, &docs, query, applicationID); err != nil {
		return nil, err
	}
	return docs, nil
}

// NextVersion returns the next version number for a document type within an
// application.
func (r *DocumentRepository) NextVersion(ctx context.Context, applicationID string, docType domain.DocumentType) (int, error) {
	var maxVersion sql.NullInt64
	query := `SELECT MAX(version) FROM documents WHERE application_id = $1 AND doc_type = $2`

	if err := r.db.GetContext(ctx, &maxVersion, query, applicationID, docType); err != nil {
		return 0, err
	}
	if !maxVersion.Valid {
		return 1, nil
	}
	return int(maxVersion.Int64) + 1, nil
}

// UpdateStatus records a verification decision on a document version
func (r *DocumentRepository) UpdateStatus(ctx context.Context, doc *domain.DocumentRef) error {
	query := `
		UPDATE documents
		SET status = $1, verifier_id = $2, verified_at = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		doc.Status, doc.VerifierID, doc.VerifiedAt, doc.RejectionReason, doc.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("document")
	}
	return nil
}
