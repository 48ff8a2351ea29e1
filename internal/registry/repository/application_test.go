package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/pkg/database"
	apperrors "github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*ApplicationRepository, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	repo := NewApplicationRepository(database.FromSqlx(mockDB.DB, logger.New("repository-test", "test")))
	return repo, mockDB
}

var applicationTestColumns = []string{
	"id", "applicant_id", "profile", "status", "score", "determined_level",
	"submitted_at", "reviewer_id", "claimed_at", "decided_at", "rejection_reason",
	"activated_at", "expires_at", "version", "created_at", "updated_at",
}

func TestApplicationRepository_Create(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("INSERT INTO applications").
		WithArgs(testutil.AnyUUID{}, "a2f7b5c1-9d4e-4a6b-8c3f-1e2d3c4b5a60", sqlmock.AnyArg(), "draft", 0.0, "", 1).
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

	app := &domain.Application{
		ApplicantID: "a2f7b5c1-9d4e-4a6b-8c3f-1e2d3c4b5a60",
		Profile:     &domain.ApplicantProfile{Personal: domain.Personal{FullName: "Test Applicant"}},
	}
	require.NoError(t, repo.Create(context.Background(), app))

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, domain.StatusDraft, app.Status)
	assert.Equal(t, 1, app.Version)
	assert.Equal(t, now, app.CreatedAt)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_GetByID(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	now := time.Now()

	profileJSON, err := json.Marshal(&domain.ApplicantProfile{
		Personal: domain.Personal{FullName: "Stored Applicant"},
	})
	require.NoError(t, err)

	mockDB.ExpectQuery("FROM applications WHERE id =").
		WithArgs("app-1").
		WillReturnRows(testutil.MockRows(applicationTestColumns...).AddRow(
			"app-1", "applicant-1", profileJSON, "submitted", 57.25, "Advanced",
			now, nil, nil, nil, nil, nil, nil, 2, now, now,
		))

	app, err := repo.GetByID(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSubmitted, app.Status)
	assert.InDelta(t, 57.25, app.Score, 0.001)
	assert.Equal(t, "Advanced", app.DeterminedLevel)
	assert.Equal(t, 2, app.Version)
	require.NotNil(t, app.Profile)
	assert.Equal(t, "Stored Applicant", app.Profile.Personal.FullName)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_GetByID_NotFound(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	mockDB.ExpectQuery("FROM applications WHERE id =").
		WithArgs("missing").
		WillReturnRows(testutil.MockRows(applicationTestColumns...))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_Update(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	mockDB.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	app := &domain.Application{
		ID:      "app-1",
		Profile: &domain.ApplicantProfile{},
		Status:  domain.StatusUnderReview,
		Version: 2,
	}
	require.NoError(t, repo.Update(context.Background(), app))

	assert.Equal(t, 3, app.Version)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_Update_VersionConflict(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	// another writer bumped the version first, no rows match
	mockDB.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	app := &domain.Application{
		ID:      "app-1",
		Profile: &domain.ApplicantProfile{},
		Status:  domain.StatusUnderReview,
		Version: 2,
	}
	err := repo.Update(context.Background(), app)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 2, app.Version)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_List_WithFilters(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT COUNT").
		WithArgs("applicant-1", "submitted").
		WillReturnRows(testutil.MockRows("count").AddRow(1))

	mockDB.ExpectQuery("FROM applications WHERE 1=1 AND applicant_id =").
		WithArgs("applicant-1", "submitted", 20, 0).
		WillReturnRows(testutil.MockRows(applicationTestColumns...).AddRow(
			"app-1", "applicant-1", []byte("{}"), "submitted", 0.0, "",
			nil, nil, nil, nil, nil, nil, nil, 1, now, now,
		))

	applicantID := "applicant-1"
	status := domain.StatusSubmitted
	apps, total, err := repo.List(context.Background(), ApplicationListParams{
		ApplicantID: &applicantID,
		Status:      &status,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, total)
	require.Len(t, apps, 1)
	assert.Equal(t, "app-1", apps[0].ID)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_ListByStatusExpiringBefore(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	now := time.Now()
	expires := now.AddDate(0, 0, 10)

	mockDB.ExpectQuery("expires_at IS NOT NULL AND expires_at <").
		WithArgs("active", testutil.AnyTime{}).
		WillReturnRows(testutil.MockRows(applicationTestColumns...).AddRow(
			"app-1", "applicant-1", []byte("{}"), "active", 60.0, "Advanced",
			nil, nil, nil, nil, nil, now, expires, 3, now, now,
		))

	apps, err := repo.ListByStatusExpiringBefore(context.Background(), domain.StatusActive, now.AddDate(0, 0, 30))
	require.NoError(t, err)

	require.Len(t, apps, 1)
	assert.Equal(t, domain.StatusActive, apps[0].Status)
	require.NotNil(t, apps[0].ExpiresAt)
	mockDB.ExpectationsWereMet(t)
}

func TestApplicationRepository_AppendAudit(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("INSERT INTO audit_entries").
		WithArgs(testutil.AnyUUID{}, "app-1", "editor-1", "registrar", "profile.edit", "typo fix", sqlmock.AnyArg()).
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))

	entry := &domain.AuditEntry{
		ApplicationID: "app-1",
		EditorID:      "editor-1",
		EditorRole:    "registrar",
		Action:        "profile.edit",
		Reason:        "typo fix",
	}
	require.NoError(t, repo.AppendAudit(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.JSONEq(t, "{}", string(entry.Diff))
	assert.Equal(t, now, entry.CreatedAt)
	mockDB.ExpectationsWereMet(t)
}
