package domain

import (
	"encoding/json"
	"time"
)

// Status is an application's lifecycle state.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusSubmitted      Status = "submitted"
	StatusUnderReview    Status = "under_review"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusActive         Status = "active"
	StatusExpiringSoon   Status = "expiring_soon"
	StatusExpired        Status = "expired"
	StatusRenewalPending Status = "renewal_pending"
	StatusSuspended      Status = "suspended"
	StatusRevoked        Status = "revoked"
)

// ValidStatuses returns every recognised lifecycle state.
func ValidStatuses() []Status {
	return []Status{
		StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved,
		StatusRejected, StatusActive, StatusExpiringSoon, StatusExpired,
		StatusRenewalPending, StatusSuspended, StatusRevoked,
	}
}

// IsValid checks if the status is recognised.
func (s Status) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// PostSubmission reports whether the status is at or past submission.
// Profile edits in these states require an audited reason.
func (s Status) PostSubmission() bool {
	return s != StatusDraft
}

// Application is a certification/registration request moving through the
// workflow. All mutations go through the workflow service; the version
// column backs optimistic concurrency.
type Application struct {
	ID              string            `db:"id" json:"id"`
	ApplicantID     string            `db:"applicant_id" json:"applicant_id"`
	Profile         *ApplicantProfile `db:"-" json:"profile"`
	Status          Status            `db:"status" json:"status"`
	Score           float64           `db:"score" json:"score"`
	DeterminedLevel string            `db:"determined_level" json:"determined_level"`
	SubmittedAt     *time.Time        `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewerID      *string           `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ClaimedAt       *time.Time        `db:"claimed_at" json:"claimed_at,omitempty"`
	DecidedAt       *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	RejectionReason *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ActivatedAt     *time.Time        `db:"activated_at" json:"activated_at,omitempty"`
	ExpiresAt       *time.Time        `db:"expires_at" json:"expires_at,omitempty"`
	Version         int               `db:"version" json:"version"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// AuditEntry is an immutable record of a post-submission change to an
// application: who, why, when, and exactly what changed.
type AuditEntry struct {
	ID            string          `db:"id" json:"id"`
	ApplicationID string          `db:"application_id" json:"application_id"`
	EditorID      string          `db:"editor_id" json:"editor_id"`
	EditorRole    string          `db:"editor_role" json:"editor_role"`
	Action        string          `db:"action" json:"action"` // profile.edit, transition, suspend, ...
	Reason        string          `db:"reason" json:"reason"`
	Diff          json.RawMessage `db:"diff" json:"diff,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// FieldChange records one changed field in a profile diff.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// DiffProfiles computes a structured diff between two profile snapshots,
// keyed by field path. Collection fields are compared as a whole: the diff
// carries the old and new collection when any entry differs.
func DiffProfiles(old, new *ApplicantProfile) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	if old == nil || new == nil {
		return changes
	}

	if old.Personal.FullName != new.Personal.FullName {
		changes["personal.full_name"] = FieldChange{From: old.Personal.FullName, To: new.Personal.FullName}
	}
	if old.Personal.NationalID != new.Personal.NationalID {
		changes["personal.national_id"] = FieldChange{From: old.Personal.NationalID, To: new.Personal.NationalID}
	}
	if !old.Personal.BirthDate.Equal(new.Personal.BirthDate) {
		changes["personal.birth_date"] = FieldChange{From: old.Personal.BirthDate, To: new.Personal.BirthDate}
	}
	if old.Personal.Email != new.Personal.Email {
		changes["personal.email"] = FieldChange{From: old.Personal.Email, To: new.Personal.Email}
	}
	if old.Personal.Phone != new.Personal.Phone {
		changes["personal.phone"] = FieldChange{From: old.Personal.Phone, To: new.Personal.Phone}
	}
	if old.Personal.Address != new.Personal.Address {
		changes["personal.address"] = FieldChange{From: old.Personal.Address, To: new.Personal.Address}
	}

	if !jsonEqual(old.Education, new.Education) {
		changes["education"] = FieldChange{From: old.Education, To: new.Education}
	}
	if !jsonEqual(old.Experience, new.Experience) {
		changes["experience"] = FieldChange{From: old.Experience, To: new.Experience}
	}
	if !jsonEqual(old.Certifications, new.Certifications) {
		changes["certifications"] = FieldChange{From: old.Certifications, To: new.Certifications}
	}
	if !jsonEqual(old.Documents, new.Documents) {
		changes["documents"] = FieldChange{From: old.Documents, To: new.Documents}
	}

	return changes
}

func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
