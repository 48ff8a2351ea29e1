package service

import (
	"context"
	"time"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// DocumentStore is the persistence boundary for the verification ledger.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.DocumentRef) error
	GetByID(ctx context.Context, id string) (*domain.DocumentRef, error)
	ListByApplication(ctx context.Context, applicationID string) ([]*domain.DocumentRef, error)
	NextVersion(ctx context.Context, applicationID string, docType domain.DocumentType) (int, error)
	UpdateStatus(ctx context.Context, doc *domain.DocumentRef) error
}

// DocumentService maintains the document verification ledger. Every
// submission appends a new version; verification decisions are recorded on
// the version they were made against and never rewritten.
type DocumentService struct {
	docs       DocumentStore
	apps       ApplicationStore
	dispatcher NotificationDispatcher
	logger     *logger.Logger
	now        func() time.Time
}

// NewDocumentService creates a new document service
func NewDocumentService(docs DocumentStore, apps ApplicationStore, dispatcher NotificationDispatcher, log *logger.Logger) *DocumentService {
	return &DocumentService{
		docs:       docs,
		apps:       apps,
		dispatcher: dispatcher,
		logger:     log,
		now:        time.Now,
	}
}

// submittableStatuses are the application states that accept new document
// versions. Once a decision is made the ledger is closed until a renewal
// reopens the application.
var submittableStatuses = map[domain.Status]bool{
	domain.StatusDraft:          true,
	domain.StatusSubmitted:      true,
	domain.StatusUnderReview:    true,
	domain.StatusRenewalPending: true,
}

// SubmitDocument appends a new document version to an application's ledger.
// A prior version of the same type is superseded, not replaced, so rejected
// versions remain visible in history.
func (s *DocumentService) SubmitDocument(ctx context.Context, applicationID string, docType domain.DocumentType, name string, required bool) (*domain.DocumentRef, error) {
	act, err := requireCapability(ctx, permissions.CapDocumentSubmit)
	if err != nil {
		return nil, err
	}

	if !docType.IsValid() {
		return nil, errors.BadRequest("unknown document type: " + string(docType))
	}
	if name == "" {
		return nil, errors.BadRequest("document name is required")
	}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !submittableStatuses[app.Status] {
		return nil, errors.PreconditionFailed("documents cannot be submitted while the application is " + string(app.Status))
	}

	version, err := s.docs.NextVersion(ctx, applicationID, docType)
	if err != nil {
		return nil, err
	}

	doc := &domain.DocumentRef{
		ApplicationID: applicationID,
		Type:          docType,
		Name:          name,
		Version:       version,
		Status:        domain.DocumentPending,
		Required:      required,
		UploadDate:    s.now(),
	}
	if version > 1 {
		prev, err := s.latestOfType(ctx, applicationID, docType)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			doc.SupersedesID = &prev.ID
		}
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("application_id", applicationID).
		Str("doc_type", string(docType)).
		Int("version", doc.Version).
		Str("actor_id", act.ID).
		Msg("document submitted")

	if s.dispatcher != nil {
		s.dispatcher.DocumentSubmitted(ctx, messaging.DocumentSubmittedEvent{
			DocumentID:    doc.ID,
			ApplicationID: applicationID,
			DocumentType:  string(docType),
			Version:       doc.Version,
			Required:      required,
		})
	}
	return doc, nil
}

// VerifyDocument marks a document version verified. Verifying an already
// verified version is a no-op; a rejected version stays rejected and a new
// version must be submitted instead.
func (s *DocumentService) VerifyDocument(ctx context.Context, documentID string) (*domain.DocumentRef, error) {
	act, err := requireCapability(ctx, permissions.CapDocumentVerify)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	switch doc.Status {
	case domain.DocumentVerified:
		return doc, nil
	case domain.DocumentRejected:
		return nil, errors.PreconditionFailed("document version was rejected, submit a new version instead")
	}

	now := s.now()
	doc.Status = domain.DocumentVerified
	doc.VerifierID = &act.ID
	doc.VerifiedAt = &now
	doc.RejectionReason = nil

	if err := s.docs.UpdateStatus(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("application_id", doc.ApplicationID).
		Str("actor_id", act.ID).
		Msg("document verified")

	if s.dispatcher != nil {
		s.dispatcher.DocumentVerified(ctx, messaging.DocumentVerifiedEvent{
			DocumentID:    doc.ID,
			ApplicationID: doc.ApplicationID,
			VerifierID:    act.ID,
		})
	}
	return doc, nil
}

// RejectDocument marks a document version rejected with a mandatory reason.
// Rejecting an already rejected version is a no-op; a verified version
// cannot be rejected.
func (s *DocumentService) RejectDocument(ctx context.Context, documentID, reason string) (*domain.DocumentRef, error) {
	act, err := requireCapability(ctx, permissions.CapDocumentVerify)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, errors.Validation(map[string]string{"reason": "required"})
	}

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	switch doc.Status {
	case domain.DocumentRejected:
		return doc, nil
	case domain.DocumentVerified:
		return nil, errors.PreconditionFailed("document version is already verified")
	}

	now := s.now()
	doc.Status = domain.DocumentRejected
	doc.VerifierID = &act.ID
	doc.VerifiedAt = &now
	doc.RejectionReason = &reason

	if err := s.docs.UpdateStatus(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("application_id", doc.ApplicationID).
		Str("actor_id", act.ID).
		Str("reason", reason).
		Msg("document rejected")

	if s.dispatcher != nil {
		s.dispatcher.DocumentRejected(ctx, messaging.DocumentRejectedEvent{
			DocumentID:    doc.ID,
			ApplicationID: doc.ApplicationID,
			VerifierID:    act.ID,
			Reason:        reason,
		})
	}
	return doc, nil
}

// ListDocuments lists every document version for an application
func (s *DocumentService) ListDocuments(ctx context.Context, applicationID string) ([]*domain.DocumentRef, error) {
	return s.docs.ListByApplication(ctx, applicationID)
}

// RequiredPresent reports whether every required document has a usable latest
// version on file, verified or not. A required document whose latest version
// was rejected needs a re-submission before it counts as present again.
func (s *DocumentService) RequiredPresent(ctx context.Context, applicationID string) (bool, error) {
	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return false, err
	}

	for _, latest := range domain.LatestByType(docs) {
		if latest.Required && latest.Status == domain.DocumentRejected {
			return false, nil
		}
	}
	return true, nil
}

// IsComplete reports whether every required document has its latest version
// verified. An application with no required documents is complete.
func (s *DocumentService) IsComplete(ctx context.Context, applicationID string) (bool, error) {
	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return false, err
	}

	for _, latest := range domain.LatestByType(docs) {
		if latest.Required && latest.Status != domain.DocumentVerified {
			return false, nil
		}
	}
	return true, nil
}

func (s *DocumentService) latestOfType(ctx context.Context, applicationID string, docType domain.DocumentType) (*domain.DocumentRef, error) {
	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return domain.LatestByType(docs)[docType], nil
}
