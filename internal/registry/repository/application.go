package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/pkg/database"
	"github.com/certflow/certportal-backend/pkg/errors"
)

// applicationRow mirrors the applications table. The profile snapshot is
// stored as JSONB and unpacked into the domain struct on read.
type applicationRow struct {
	ID              string          `db:"id"`
	ApplicantID     string          `db:"applicant_id"`
	Profile         json.RawMessage `db:"profile"`
	Status          string          `db:"status"`
	Score           float64         `db:"score"`
	DeterminedLevel string          `db:"determined_level"`
	SubmittedAt     *time.Time      `db:"submitted_at"`
	ReviewerID      *string         `db:"reviewer_id"`
	ClaimedAt       *time.Time      `db:"claimed_at"`
	DecidedAt       *time.Time      `db:"decided_at"`
	RejectionReason *string         `db:"rejection_reason"`
	ActivatedAt     *time.Time      `db:"activated_at"`
	ExpiresAt       *time.Time      `db:"expires_at"`
	Version         int             `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r *applicationRow) toDomain() (*domain.Application, error) {
	app := &domain.Application{
		ID:              r.ID,
		ApplicantID:     r.ApplicantID,
		Status:          domain.Status(r.Status),
		Score:           r.Score,
		DeterminedLevel: r.DeterminedLevel,
		SubmittedAt:     r.SubmittedAt,
		ReviewerID:      r.ReviewerID,
		ClaimedAt:       r.ClaimedAt,
		DecidedAt:       r.DecidedAt,
		RejectionReason: r.RejectionReason,
		ActivatedAt:     r.ActivatedAt,
		ExpiresAt:       r.ExpiresAt,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if len(r.Profile) > 0 {
		var profile domain.ApplicantProfile
		if err := json.Unmarshal(r.Profile, &profile); err != nil {
			return nil, errors.Internal("corrupt profile snapshot for application " + r.ID)
		}
		app.Profile = &profile
	}
	return app, nil
}

// ApplicationListParams holds parameters for listing applications
type ApplicationListParams struct {
	ApplicantID *string
	ReviewerID  *string
	Status      *domain.Status
	Page        int
	PerPage     int
}

// ApplicationRepository handles application persistence
type ApplicationRepository struct {
	db *database.DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *database.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `
	id, applicant_id, profile, status, score, determined_level,
	submitted_at, reviewer_id, claimed_at, decided_at, rejection_reason,
	activated_at, expires_at, version, created_at, updated_at
`

// Create creates a new application in draft state
func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = domain.StatusDraft
	}
	app.Version = 1

	profileJSON, err := json.Marshal(app.Profile)
	if err != nil {
		return errors.Internal("failed to encode profile snapshot")
	}

	query := `
		INSERT INTO applications (id, applicant_id, profile, status, score, determined_level, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		app.ID, app.ApplicantID, profileJSON, app.Status, app.Score, app.DeterminedLevel, app.Version,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// GetByID gets an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	var row applicationRow
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("application")
		}
		return nil, err
	}
	return row.toDomain()
}

// Update persists the application using optimistic concurrency: the row is
// only written when the stored version matches the in-memory one, and the
// version is bumped. A mismatch returns a version conflict the caller must
// resolve by reloading.
func (r *ApplicationRepository) Update(ctx context.Context, app *domain.Application) error {
	profileJSON, err := json.Marshal(app.Profile)
	if err != nil {
		return errors.Internal("failed to encode profile snapshot")
	}

	query := `
		UPDATE applications
		SET profile = $1, status = $2, score = $3, determined_level = $4,
		    submitted_at = $5, reviewer_id = $6, claimed_at = $7, decided_at = $8,
		    rejection_reason = $9, activated_at = $10, expires_at = $11,
		    version = version + 1, updated_at = NOW()
		WHERE id = $12 AND version = $13
	`
	result, err := r.db.ExecContext(ctx, query,
		profileJSON, app.Status, app.Score, app.DeterminedLevel,
		app.SubmittedAt, app.ReviewerID, app.ClaimedAt, app.DecidedAt,
		app.RejectionReason, app.ActivatedAt, app.ExpiresAt,
		app.ID, app.Version,
	)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.VersionConflict("application")
	}

	app.Version++
	return nil
}

// List lists applications with filters
func (r *ApplicationRepository) List(ctx context.Context, params ApplicationListParams) ([]*domain.Application, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 20
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM applications WHERE 1=1`
	args := []interface{}{}

	if params.ApplicantID != nil {
		args = append(args, *params.ApplicantID)
		cond := ` AND applicant_id = $` + strconv.Itoa(len(args))
		query += cond
		countQuery += cond
	}
	if params.ReviewerID != nil {
		args = append(args, *params.ReviewerID)
		cond := ` AND reviewer_id = $` + strconv.Itoa(len(args))
		query += cond
		countQuery += cond
	}
	if params.Status != nil {
		args = append(args, string(*params.Status))
		cond := ` AND status = $` + strconv.Itoa(len(args))
		query += cond
		countQuery += cond
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, params.PerPage, (params.Page-1)*params.PerPage)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	apps := make([]*domain.Application, 0, len(rows))
	for i := range rows {
		app, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, total, nil
}

// ListByStatusExpiringBefore returns applications in the given status whose
// expiry date falls before the cutoff. Used by the expiry sweep.
func (r *ApplicationRepository) ListByStatusExpiringBefore(ctx context.Context, status domain.Status, cutoff time.Time) ([]*domain.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2
		ORDER BY expires_at ASC`

	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status), cutoff); err != nil {
		return nil, err
	}

	apps := make([]*domain.Application, 0, len(rows))
	for i := range rows {
		app, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// AppendAudit appends an immutable audit entry for an application
func (r *ApplicationRepository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if len(entry.Diff) == 0 {
		entry.Diff = json.RawMessage("{}")
	}

	query := `
		INSERT INTO audit_entries (id, application_id, editor_id, editor_role, action, reason, diff)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.ApplicationID, entry.EditorID, entry.EditorRole,
		entry.Action, entry.Reason, entry.Diff,
	).Scan(&entry.CreatedAt)
}

// ListAudit lists the audit trail for an application, newest first
func (r *ApplicationRepository) ListAudit(ctx context.Context, applicationID string) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, application_id, editor_id, editor_role, action, reason, diff, created_at
		FROM audit_entries
		WHERE application_id = $1
		ORDER BY created_at DESC
	`
	var entries []*domain.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, applicationID); err != nil {
		return nil, err
	}
	return entries, nil
}
