package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/pkg/actor"
	"github.com/certflow/certportal-backend/pkg/config"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// ApplicationStore is the persistence boundary for applications and their
// audit trail.
type ApplicationStore interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	Update(ctx context.Context, app *domain.Application) error
	List(ctx context.Context, params repository.ApplicationListParams) ([]*domain.Application, int64, error)
	ListByStatusExpiringBefore(ctx context.Context, status domain.Status, cutoff time.Time) ([]*domain.Application, error)
	AppendAudit(ctx context.Context, entry *domain.AuditEntry) error
	ListAudit(ctx context.Context, applicationID string) ([]*domain.AuditEntry, error)
}

// DocumentResolver answers ledger questions for workflow gates. Submission
// needs every required document on file; approval needs them verified.
// Implemented by DocumentService.
type DocumentResolver interface {
	RequiredPresent(ctx context.Context, applicationID string) (bool, error)
	IsComplete(ctx context.Context, applicationID string) (bool, error)
}

// EligibilityResolver supplies the scoring configuration. Implemented by
// CriteriaService.
type EligibilityResolver interface {
	ActiveCriteria(ctx context.Context) ([]*domain.Criterion, error)
	LevelForYears(ctx context.Context, years float64) (*domain.LevelBand, error)
	LevelAtLeast(ctx context.Context, have, want string) (bool, error)
}

// BillingIssuer raises invoices for workflow events. Implemented by
// BillingService. A (nil, nil) return means the event is fee-free.
type BillingIssuer interface {
	IssueInvoice(ctx context.Context, app *domain.Application, kind domain.InvoiceKind) (*domain.Invoice, error)
}

// workflowTransitions is the legal transition table. Anything not listed is
// an invalid transition and is rejected loudly, never silently ignored.
var workflowTransitions = map[domain.Status][]domain.Status{
	domain.StatusDraft:          {domain.StatusSubmitted},
	domain.StatusSubmitted:      {domain.StatusUnderReview},
	domain.StatusUnderReview:    {domain.StatusApproved, domain.StatusRejected},
	domain.StatusApproved:       {domain.StatusActive},
	domain.StatusActive:         {domain.StatusExpiringSoon, domain.StatusExpired, domain.StatusSuspended, domain.StatusRevoked},
	domain.StatusExpiringSoon:   {domain.StatusExpired, domain.StatusRenewalPending, domain.StatusSuspended, domain.StatusRevoked},
	domain.StatusExpired:        {domain.StatusRenewalPending},
	domain.StatusRenewalPending: {domain.StatusActive, domain.StatusExpired},
	domain.StatusSuspended:      {domain.StatusActive, domain.StatusRevoked},
}

// CanTransition reports whether from -> to is a legal workflow transition.
func CanTransition(from, to domain.Status) bool {
	for _, allowed := range workflowTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// WorkflowService drives applications through the certification lifecycle.
// Operations on the same application are serialised with a per-ID lock, and
// every persisted change goes through optimistic concurrency in the store,
// so a lost update is impossible even across processes.
type WorkflowService struct {
	apps        ApplicationStore
	docs        DocumentResolver
	eligibility EligibilityResolver
	billing     BillingIssuer
	scorer      *Scorer
	dispatcher  NotificationDispatcher
	cfg         config.RegistryConfig
	logger      *logger.Logger
	locks       *keyedMutex
	now         func() time.Time
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(
	apps ApplicationStore,
	docs DocumentResolver,
	eligibility EligibilityResolver,
	billing BillingIssuer,
	scorer *Scorer,
	dispatcher NotificationDispatcher,
	cfg config.RegistryConfig,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		apps:        apps,
		docs:        docs,
		eligibility: eligibility,
		billing:     billing,
		scorer:      scorer,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      log,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// CreateDraft opens a draft application for the acting applicant.
func (s *WorkflowService) CreateDraft(ctx context.Context, profile *domain.ApplicantProfile) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationSubmit)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.BadRequest("applicant profile is required")
	}

	app := &domain.Application{
		ApplicantID: act.ID,
		Profile:     profile.Clone(),
		Status:      domain.StatusDraft,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("application_id", app.ID).
		Str("applicant_id", act.ID).
		Msg("draft application created")
	return app, nil
}

// Submit moves a draft into the review queue. The eligibility score and
// level are computed at submission and stored on the application.
func (s *WorkflowService) Submit(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationSubmit)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := ownershipGuard(act, app); err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusSubmitted) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusSubmitted))
	}
	if err := profileSubmittable(app.Profile); err != nil {
		return nil, err
	}
	present, err := s.docs.RequiredPresent(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, errors.PreconditionFailed("required documents are not all on file")
	}

	if err := s.rescore(ctx, app); err != nil {
		return nil, err
	}

	from := app.Status
	now := s.now()
	app.Status = domain.StatusSubmitted
	app.SubmittedAt = &now

	if err := s.persist(ctx, app, act, "submit", from, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationSubmitted, app, act, from, nil)
	return app, nil
}

// Claim assigns a submitted application to the acting reviewer and moves it
// under review.
func (s *WorkflowService) Claim(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationReview)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusUnderReview) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusUnderReview))
	}

	from := app.Status
	now := s.now()
	app.Status = domain.StatusUnderReview
	app.ReviewerID = &act.ID
	app.ClaimedAt = &now

	if err := s.persist(ctx, app, act, "claim", from, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationClaimed, app, act, from, nil)
	return app, nil
}

// Approve decides an application under review in the applicant's favour.
// The profile is re-scored first so registrar edits made during review are
// reflected, then the approval gate is checked against the fresh score and
// level. Required documents must all be verified.
//
// Approval raises the registration invoice. A fee-free configuration skips
// billing and activates the certification immediately.
func (s *WorkflowService) Approve(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationDecide)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusApproved) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusApproved))
	}

	complete, err := s.docs.IsComplete(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, errors.PreconditionFailed("required documents are not all verified")
	}

	if err := s.rescore(ctx, app); err != nil {
		return nil, err
	}
	if err := s.approvalGate(ctx, app); err != nil {
		return nil, err
	}

	from := app.Status
	now := s.now()
	app.Status = domain.StatusApproved
	app.DecidedAt = &now

	if err := s.persist(ctx, app, act, "approve", from, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationApproved, app, act, from, nil)

	invoice, err := s.billing.IssueInvoice(ctx, app, domain.InvoiceKindRegistration)
	if err != nil {
		s.logger.Error().Err(err).Str("application_id", app.ID).Msg("approved but registration invoice issuance failed")
		return nil, errors.Internal("application approved but registration invoice could not be issued")
	}
	if invoice == nil {
		// Fee-free registration activates immediately
		return s.activateLocked(ctx, app, act)
	}
	return app, nil
}

// Reject decides an application under review against the applicant. A
// reason is mandatory and becomes part of the permanent record.
func (s *WorkflowService) Reject(ctx context.Context, applicationID, reason string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationDecide)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, errors.PreconditionFailed("a rejection reason is required")
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusRejected) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusRejected))
	}

	from := app.Status
	now := s.now()
	app.Status = domain.StatusRejected
	app.RejectionReason = &reason
	app.DecidedAt = &now

	if err := s.persist(ctx, app, act, "reject", from, &reason); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationRejected, app, act, from, &reason)
	return app, nil
}

// Activate turns an approved application into an active certification. In
// the normal flow this is driven by the invoice.paid consumer; admins can
// also trigger it directly.
func (s *WorkflowService) Activate(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationDecide)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.activateLocked(ctx, app, act)
}

// activateLocked performs the shared activation step for approvals and
// renewals. Caller holds the application lock.
func (s *WorkflowService) activateLocked(ctx context.Context, app *domain.Application, act *actor.Actor) (*domain.Application, error) {
	if !CanTransition(app.Status, domain.StatusActive) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusActive))
	}

	from := app.Status
	now := s.now()
	expires := now.AddDate(s.cfg.ValidityYears, 0, 0)
	app.Status = domain.StatusActive
	app.ActivatedAt = &now
	app.ExpiresAt = &expires

	action := "activate"
	eventType := messaging.EventApplicationActivated
	switch from {
	case domain.StatusRenewalPending:
		action = "renew"
		eventType = messaging.EventApplicationRenewed
	case domain.StatusSuspended:
		action = "resume"
		eventType = messaging.EventApplicationResumed
	}

	if err := s.persist(ctx, app, act, action, from, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, eventType, app, act, from, nil)
	return app, nil
}

// Suspend takes an active certification out of force pending investigation.
// A reason is mandatory.
func (s *WorkflowService) Suspend(ctx context.Context, applicationID, reason string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationSuspend)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, errors.PreconditionFailed("a suspension reason is required")
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusSuspended) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusSuspended))
	}

	from := app.Status
	app.Status = domain.StatusSuspended

	if err := s.persist(ctx, app, act, "suspend", from, &reason); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationSuspended, app, act, from, &reason)
	return app, nil
}

// Resume lifts a suspension. The certification returns to active with its
// original expiry date; if that date has already passed the next expiry
// sweep moves it straight to expired.
func (s *WorkflowService) Resume(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationSuspend)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusSuspended {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusActive))
	}

	from := app.Status
	app.Status = domain.StatusActive

	if err := s.persist(ctx, app, act, "resume", from, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationResumed, app, act, from, nil)
	return app, nil
}

// Revoke permanently withdraws a certification. This is terminal; a reason
// is mandatory.
func (s *WorkflowService) Revoke(ctx context.Context, applicationID, reason string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationRevoke)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, errors.PreconditionFailed("a revocation reason is required")
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusRevoked) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusRevoked))
	}

	from := app.Status
	app.Status = domain.StatusRevoked

	if err := s.persist(ctx, app, act, "revoke", from, &reason); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationRevoked, app, act, from, &reason)
	return app, nil
}

// RequestRenewal opens a renewal for a certification nearing or past its
// expiry and raises the renewal invoice. Fee-free renewals complete
// immediately.
func (s *WorkflowService) RequestRenewal(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationRenew)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := ownershipGuard(act, app); err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, domain.StatusRenewalPending) {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusRenewalPending))
	}

	from := app.Status
	app.Status = domain.StatusRenewalPending

	if err := s.persist(ctx, app, act, "renewal.request", from, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventApplicationRenewalOpened, app, act, from, nil)

	invoice, err := s.billing.IssueInvoice(ctx, app, domain.InvoiceKindRenewal)
	if err != nil {
		s.logger.Error().Err(err).Str("application_id", app.ID).Msg("renewal opened but invoice issuance failed")
		return nil, errors.Internal("renewal opened but renewal invoice could not be issued")
	}
	if invoice == nil {
		return s.activateLocked(ctx, app, act)
	}
	return app, nil
}

// CompleteRenewal closes a pending renewal, extending the certification. In
// the normal flow this is driven by the invoice.paid consumer.
func (s *WorkflowService) CompleteRenewal(ctx context.Context, applicationID string) (*domain.Application, error) {
	act, err := requireCapability(ctx, permissions.CapApplicationDecide)
	if err != nil {
		return nil, err
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusRenewalPending {
		return nil, errors.InvalidTransition(string(app.Status), string(domain.StatusActive))
	}
	return s.activateLocked(ctx, app, act)
}

// editableStatuses are the states in which the profile may still change.
var editableStatuses = map[domain.Status]bool{
	domain.StatusDraft:          true,
	domain.StatusSubmitted:      true,
	domain.StatusUnderReview:    true,
	domain.StatusRenewalPending: true,
}

// EditProfile replaces the application's profile snapshot. Applicants may
// edit their own drafts freely; after submission edits require the edit
// capability and a reason, and every change lands in the audit trail with a
// structured field diff. Submitted and under-review applications are
// re-scored so the stored score always matches the stored profile.
func (s *WorkflowService) EditProfile(ctx context.Context, applicationID string, profile *domain.ApplicantProfile, reason string) (*domain.Application, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if profile == nil {
		return nil, errors.BadRequest("applicant profile is required")
	}

	s.locks.lock(applicationID)
	defer s.locks.unlock(applicationID)

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !editableStatuses[app.Status] {
		return nil, errors.PreconditionFailed("profile cannot be edited while the application is " + string(app.Status))
	}

	if app.Status.PostSubmission() {
		if !permissions.HasPermission(act.Permissions, permissions.CapApplicationEdit) {
			return nil, errors.Forbidden("missing capability: " + permissions.CapApplicationEdit)
		}
		if reason == "" {
			return nil, errors.PreconditionFailed("an edit reason is required after submission")
		}
	} else if err := ownershipGuard(act, app); err != nil {
		return nil, err
	}

	diff := domain.DiffProfiles(app.Profile, profile)
	if len(diff) == 0 {
		return app, nil
	}

	app.Profile = profile.Clone()
	if app.Status == domain.StatusSubmitted || app.Status == domain.StatusUnderReview {
		if err := s.rescore(ctx, app); err != nil {
			return nil, err
		}
	}

	if err := s.apps.Update(ctx, app); err != nil {
		return nil, err
	}

	diffJSON, err := json.Marshal(diff)
	if err != nil {
		return nil, errors.Internal("failed to encode profile diff")
	}
	s.audit(ctx, &domain.AuditEntry{
		ApplicationID: app.ID,
		EditorID:      act.ID,
		EditorRole:    act.Role,
		Action:        "profile.edit",
		Reason:        reason,
		Diff:          diffJSON,
	})

	if s.dispatcher != nil {
		fields := make(map[string]any, len(diff))
		for path, change := range diff {
			fields[path] = change
		}
		s.dispatcher.ProfileEdited(ctx, messaging.ApplicationProfileEditedEvent{
			ApplicationID: app.ID,
			EditorID:      act.ID,
			Reason:        reason,
			Fields:        fields,
		})
	}
	return app, nil
}

// GetApplication gets an application. Applicants can only see their own.
func (s *WorkflowService) GetApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := ownershipGuard(act, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListApplications lists applications. Applicants are restricted to their
// own regardless of the filters they pass.
func (s *WorkflowService) ListApplications(ctx context.Context, params repository.ApplicationListParams) ([]*domain.Application, int64, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, 0, errors.Unauthorized("authentication required")
	}
	if act.Role == actor.RoleApplicant {
		params.ApplicantID = &act.ID
	}
	return s.apps.List(ctx, params)
}

// AuditTrail returns the audit history of an application, newest first.
func (s *WorkflowService) AuditTrail(ctx context.Context, applicationID string) ([]*domain.AuditEntry, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := ownershipGuard(act, app); err != nil {
		return nil, err
	}
	return s.apps.ListAudit(ctx, app.ID)
}

// ScoreApplication computes a fresh score breakdown for an application
// against the current criteria without persisting anything.
func (s *WorkflowService) ScoreApplication(ctx context.Context, applicationID string) (*ScoreResult, error) {
	app, err := s.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	criteria, err := s.eligibility.ActiveCriteria(ctx)
	if err != nil {
		return nil, err
	}
	return s.scorer.Score(app.Profile, criteria), nil
}

// SweepExpiry moves active certifications inside the warning window to
// expiring_soon and anything past its expiry date to expired. Returns the
// number of applications transitioned. Run under the system actor.
func (s *WorkflowService) SweepExpiry(ctx context.Context) (int, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		act = actor.SystemActor()
		ctx = actor.WithActor(ctx, act)
	}

	now := s.now()
	warningCutoff := now.AddDate(0, 0, s.cfg.ExpiryWarningDays)
	swept := 0

	entering, err := s.apps.ListByStatusExpiringBefore(ctx, domain.StatusActive, warningCutoff)
	if err != nil {
		return 0, err
	}
	for _, app := range entering {
		target := domain.StatusExpiringSoon
		eventType := messaging.EventApplicationExpiring
		if app.ExpiresAt.Before(now) {
			target = domain.StatusExpired
			eventType = messaging.EventApplicationExpired
		}
		if s.sweepTransition(ctx, app, act, target, eventType) {
			swept++
		}
	}

	lapsing, err := s.apps.ListByStatusExpiringBefore(ctx, domain.StatusExpiringSoon, now)
	if err != nil {
		return swept, err
	}
	for _, app := range lapsing {
		if s.sweepTransition(ctx, app, act, domain.StatusExpired, messaging.EventApplicationExpired) {
			swept++
		}
	}

	return swept, nil
}

// sweepTransition applies one sweep-driven transition. Failures are logged
// and skipped; the next sweep retries.
func (s *WorkflowService) sweepTransition(ctx context.Context, app *domain.Application, act *actor.Actor, to domain.Status, eventType string) bool {
	s.locks.lock(app.ID)
	defer s.locks.unlock(app.ID)

	from := app.Status
	app.Status = to
	if err := s.persist(ctx, app, act, "expiry.sweep", from, nil); err != nil {
		s.logger.Warn().Err(err).Str("application_id", app.ID).Msg("expiry sweep skipped application")
		return false
	}
	s.notify(ctx, eventType, app, act, from, nil)
	return true
}

// rescore recomputes the stored score and level from the current profile.
func (s *WorkflowService) rescore(ctx context.Context, app *domain.Application) error {
	criteria, err := s.eligibility.ActiveCriteria(ctx)
	if err != nil {
		return err
	}

	result := s.scorer.Score(app.Profile, criteria)
	band, err := s.eligibility.LevelForYears(ctx, result.QualifyingYears)
	if err != nil {
		return err
	}

	app.Score = result.Total
	app.DeterminedLevel = band.Name
	return nil
}

// approvalGate enforces the configured approval threshold against the
// application's stored score and level.
func (s *WorkflowService) approvalGate(ctx context.Context, app *domain.Application) error {
	gate := s.cfg.ApprovalGate
	if gate == "score" || gate == "both" {
		if app.Score < s.cfg.MinApprovalScore {
			return errors.PreconditionFailed(fmt.Sprintf(
				"score %.2f is below the approval minimum %.2f", app.Score, s.cfg.MinApprovalScore))
		}
	}
	if gate == "level" || gate == "both" {
		ok, err := s.eligibility.LevelAtLeast(ctx, app.DeterminedLevel, s.cfg.MinApprovalLevel)
		if err != nil {
			return err
		}
		if !ok {
			return errors.PreconditionFailed(fmt.Sprintf(
				"level %s is below the approval minimum %s", app.DeterminedLevel, s.cfg.MinApprovalLevel))
		}
	}
	return nil
}

// persist writes the application and appends the audit entry for the
// transition. Audit append failures are logged, not propagated: the state
// change has already been committed.
func (s *WorkflowService) persist(ctx context.Context, app *domain.Application, act *actor.Actor, action string, from domain.Status, reason *string) error {
	if err := s.apps.Update(ctx, app); err != nil {
		return err
	}

	diff, _ := json.Marshal(map[string]domain.FieldChange{
		"status": {From: string(from), To: string(app.Status)},
	})
	entry := &domain.AuditEntry{
		ApplicationID: app.ID,
		EditorID:      act.ID,
		EditorRole:    act.Role,
		Action:        action,
		Diff:          diff,
	}
	if reason != nil {
		entry.Reason = *reason
	}
	s.audit(ctx, entry)

	s.logger.Info().
		Str("application_id", app.ID).
		Str("from", string(from)).
		Str("to", string(app.Status)).
		Str("action", action).
		Str("actor_id", act.ID).
		Msg("application transitioned")
	return nil
}

func (s *WorkflowService) audit(ctx context.Context, entry *domain.AuditEntry) {
	if err := s.apps.AppendAudit(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("application_id", entry.ApplicationID).
			Str("action", entry.Action).
			Msg("failed to append audit entry")
	}
}

func (s *WorkflowService) notify(ctx context.Context, eventType string, app *domain.Application, act *actor.Actor, from domain.Status, reason *string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.ApplicationTransitioned(ctx, eventType, messaging.ApplicationTransitionedEvent{
		ApplicationID: app.ID,
		ApplicantID:   app.ApplicantID,
		FromStatus:    string(from),
		ToStatus:      string(app.Status),
		ActorID:       act.ID,
		Reason:        reason,
		Score:         app.Score,
		Level:         app.DeterminedLevel,
	})
}

// ownershipGuard stops applicants acting on applications that are not theirs.
func ownershipGuard(act *actor.Actor, app *domain.Application) error {
	if act.Role == actor.RoleApplicant && act.ID != app.ApplicantID {
		return errors.Forbidden("application belongs to another applicant")
	}
	return nil
}

// profileSubmittable checks the minimum profile content needed to enter the
// review queue.
func profileSubmittable(p *domain.ApplicantProfile) error {
	if p == nil {
		return errors.PreconditionFailed("application has no profile")
	}
	details := make(map[string]string)
	if p.Personal.FullName == "" {
		details["personal.full_name"] = "required"
	}
	if p.Personal.NationalID == "" {
		details["personal.national_id"] = "required"
	}
	if p.Personal.Email == "" {
		details["personal.email"] = "required"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}
