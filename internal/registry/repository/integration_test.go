package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/pkg/database"
	apperrors "github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/testutil"
)

var (
	integrationDB  *database.DB
	integrationRaw *sqlx.DB
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	integrationRaw, err = container.Connect(ctx)
	if err != nil {
		container.Terminate(ctx)
		log.Fatalf("failed to connect to test database: %v", err)
	}

	if err := container.CreateRegistrySchema(ctx, integrationRaw); err != nil {
		container.Terminate(ctx)
		log.Fatalf("failed to create registry schema: %v", err)
	}

	integrationDB = database.FromSqlx(integrationRaw, logger.New("repository-integration", "test"))

	code := m.Run()

	integrationRaw.Close()
	container.Terminate(ctx)
	os.Exit(code)
}

// createDraft inserts a fresh draft application for an isolated applicant.
func createDraft(t *testing.T, ctx context.Context, repo *repository.ApplicationRepository) *domain.Application {
	t.Helper()
	app := &domain.Application{
		ApplicantID: uuid.New().String(),
		Profile: &domain.ApplicantProfile{
			Personal: domain.Personal{
				FullName:   "Integration Applicant",
				NationalID: "1234567890",
				Email:      "applicant@certportal.test",
			},
		},
	}
	require.NoError(t, repo.Create(ctx, app))
	return app
}

func TestIntegration_ApplicationLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	repo := repository.NewApplicationRepository(integrationDB)

	app := createDraft(t, ctx, repo)
	assert.Equal(t, domain.StatusDraft, app.Status)
	assert.Equal(t, 1, app.Version)

	// Profile snapshot survives the JSONB roundtrip
	loaded, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Profile)
	assert.Equal(t, "Integration Applicant", loaded.Profile.Personal.FullName)
	assert.Equal(t, "1234567890", loaded.Profile.Personal.NationalID)

	// Walk the application through submission and approval
	now := time.Now().UTC()
	loaded.Status = domain.StatusSubmitted
	loaded.SubmittedAt = &now
	loaded.Score = 57.25
	loaded.DeterminedLevel = "Advanced"
	require.NoError(t, repo.Update(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)

	reviewerID := uuid.New().String()
	loaded.Status = domain.StatusApproved
	loaded.ReviewerID = &reviewerID
	loaded.DecidedAt = &now
	require.NoError(t, repo.Update(ctx, loaded))
	assert.Equal(t, 3, loaded.Version)

	final, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, final.Status)
	assert.InDelta(t, 57.25, final.Score, 0.001)
	assert.Equal(t, "Advanced", final.DeterminedLevel)
	require.NotNil(t, final.ReviewerID)
	assert.Equal(t, reviewerID, *final.ReviewerID)
}

func TestIntegration_ApplicationVersionConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	repo := repository.NewApplicationRepository(integrationDB)

	app := createDraft(t, ctx, repo)

	first, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)

	first.Status = domain.StatusSubmitted
	require.NoError(t, repo.Update(ctx, first))

	// The second copy is now stale, its write must be refused
	second.Status = domain.StatusRevoked
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	current, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, current.Status)
}

func TestIntegration_ApplicationListFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	repo := repository.NewApplicationRepository(integrationDB)

	mine := createDraft(t, ctx, repo)
	createDraft(t, ctx, repo) // someone else's

	mine.Status = domain.StatusSubmitted
	require.NoError(t, repo.Update(ctx, mine))

	status := domain.StatusSubmitted
	apps, total, err := repo.List(ctx, repository.ApplicationListParams{
		ApplicantID: &mine.ApplicantID,
		Status:      &status,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, apps, 1)
	assert.Equal(t, mine.ID, apps[0].ID)

	apps, total, err = repo.List(ctx, repository.ApplicationListParams{
		ApplicantID: &mine.ApplicantID,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, apps, 1)
}

func TestIntegration_ExpiryCutoffQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	repo := repository.NewApplicationRepository(integrationDB)

	now := time.Now().UTC()

	expiring := createDraft(t, ctx, repo)
	expiresSoon := now.AddDate(0, 0, 10)
	expiring.Status = domain.StatusActive
	expiring.ActivatedAt = &now
	expiring.ExpiresAt = &expiresSoon
	require.NoError(t, repo.Update(ctx, expiring))

	healthy := createDraft(t, ctx, repo)
	expiresLater := now.AddDate(2, 0, 0)
	healthy.Status = domain.StatusActive
	healthy.ActivatedAt = &now
	healthy.ExpiresAt = &expiresLater
	require.NoError(t, repo.Update(ctx, healthy))

	apps, err := repo.ListByStatusExpiringBefore(ctx, domain.StatusActive, now.AddDate(0, 0, 30))
	require.NoError(t, err)

	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, expiring.ID)
	assert.NotContains(t, ids, healthy.ID)
}

func TestIntegration_AuditTrail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	repo := repository.NewApplicationRepository(integrationDB)

	app := createDraft(t, ctx, repo)
	editorID := uuid.New().String()

	require.NoError(t, repo.AppendAudit(ctx, &domain.AuditEntry{
		ApplicationID: app.ID,
		EditorID:      editorID,
		EditorRole:    "applicant",
		Action:        "submit",
	}))
	require.NoError(t, repo.AppendAudit(ctx, &domain.AuditEntry{
		ApplicationID: app.ID,
		EditorID:      editorID,
		EditorRole:    "registrar",
		Action:        "profile.edit",
		Reason:        "typo fix",
	}))

	entries, err := repo.ListAudit(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	actions := []string{entries[0].Action, entries[1].Action}
	assert.Contains(t, actions, "submit")
	assert.Contains(t, actions, "profile.edit")
	for _, e := range entries {
		assert.JSONEq(t, "{}", string(e.Diff))
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestIntegration_DocumentVersioning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	appRepo := repository.NewApplicationRepository(integrationDB)
	docRepo := repository.NewDocumentRepository(integrationDB)

	app := createDraft(t, ctx, appRepo)

	v1 := &domain.DocumentRef{
		ApplicationID: app.ID,
		Type:          domain.DocumentTypeDegree,
		Name:          "degree.pdf",
		Required:      true,
		UploadDate:    time.Now().UTC(),
	}
	require.NoError(t, docRepo.Create(ctx, v1))
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, domain.DocumentPending, v1.Status)

	next, err := docRepo.NextVersion(ctx, app.ID, domain.DocumentTypeDegree)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	// Reject v1 and resubmit as v2
	reason := "illegible scan"
	verifierID := uuid.New().String()
	verifiedAt := time.Now().UTC()
	v1.Status = domain.DocumentRejected
	v1.VerifierID = &verifierID
	v1.VerifiedAt = &verifiedAt
	v1.RejectionReason = &reason
	require.NoError(t, docRepo.UpdateStatus(ctx, v1))

	v2 := &domain.DocumentRef{
		ApplicationID: app.ID,
		Type:          domain.DocumentTypeDegree,
		Name:          "degree-rescan.pdf",
		Version:       next,
		SupersedesID:  &v1.ID,
		Required:      true,
		UploadDate:    time.Now().UTC(),
	}
	require.NoError(t, docRepo.Create(ctx, v2))

	docs, err := docRepo.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0].Version)
	assert.Equal(t, 2, docs[1].Version)
	assert.Equal(t, domain.DocumentRejected, docs[0].Status)
	require.NotNil(t, docs[1].SupersedesID)
	assert.Equal(t, v1.ID, *docs[1].SupersedesID)

	latest := domain.LatestByType(docs)
	assert.Equal(t, v2.ID, latest[domain.DocumentTypeDegree].ID)
}

func TestIntegration_InvoiceLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	appRepo := repository.NewApplicationRepository(integrationDB)
	invRepo := repository.NewInvoiceRepository(integrationDB)

	app := createDraft(t, ctx, appRepo)
	now := time.Now().UTC()

	inv := &domain.Invoice{
		ApplicationID: app.ID,
		Kind:          domain.InvoiceKindRegistration,
		Items: []domain.LineItem{
			{Description: "Registration fee", Quantity: 1, UnitPrice: 500},
		},
		Amount:    500,
		Tax:       75,
		Total:     575,
		Currency:  "SAR",
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 30),
	}
	require.NoError(t, invRepo.Create(ctx, inv))
	assert.Equal(t, domain.InvoicePending, inv.Status)
	assert.Equal(t, 1, inv.Version)

	// Line items survive the JSONB roundtrip
	loaded, err := invRepo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Registration fee", loaded.Items[0].Description)
	assert.InDelta(t, 575, loaded.Total, 0.001)

	method := "mada"
	paidAt := time.Now().UTC()
	loaded.Status = domain.InvoicePaid
	loaded.PaidDate = &paidAt
	loaded.PaymentMethod = &method
	require.NoError(t, invRepo.Update(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)

	status := domain.InvoicePaid
	invoices, total, err := invRepo.List(ctx, repository.InvoiceListParams{
		ApplicationID: &app.ID,
		Status:        &status,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, invoices, 1)
	require.NotNil(t, invoices[0].PaymentMethod)
	assert.Equal(t, "mada", *invoices[0].PaymentMethod)

	// A paid invoice never shows up in the overdue sweep
	due, err := invRepo.ListPendingDueBefore(ctx, now.AddDate(0, 0, 60))
	require.NoError(t, err)
	for _, d := range due {
		assert.NotEqual(t, inv.ID, d.ID)
	}
}

func TestIntegration_CriteriaAndLevelBands(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	repo := repository.NewCriteriaRepository(integrationDB)

	criterion := &domain.Criterion{
		Name:     "Integration education weight",
		Category: domain.CategoryEducation,
		Weight:   25,
		Active:   true,
	}
	require.NoError(t, repo.UpsertCriterion(ctx, criterion))
	assert.NotEmpty(t, criterion.ID)
	assert.False(t, criterion.CreatedAt.IsZero())

	criterion.Weight = 30
	require.NoError(t, repo.UpsertCriterion(ctx, criterion))

	loaded, err := repo.GetCriterion(ctx, criterion.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30, loaded.Weight, 0.001)

	junior := &domain.LevelBand{Name: "Integration Junior", MinYears: 0, MaxYears: intPtr(2)}
	senior := &domain.LevelBand{Name: "Integration Senior", MinYears: 3}
	require.NoError(t, repo.UpsertLevelBand(ctx, junior))
	require.NoError(t, repo.UpsertLevelBand(ctx, senior))

	bands, err := repo.ListLevelBands(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(bands), 2)
	// Ordered by minimum years ascending
	for i := 1; i < len(bands); i++ {
		assert.LessOrEqual(t, bands[i-1].MinYears, bands[i].MinYears)
	}

	require.NoError(t, repo.RemoveCriterion(ctx, criterion.ID))
	_, err = repo.GetCriterion(ctx, criterion.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.RemoveLevelBand(ctx, junior.ID))
	require.NoError(t, repo.RemoveLevelBand(ctx, senior.ID))
	err = repo.RemoveLevelBand(ctx, senior.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func intPtr(n int) *int {
	return &n
}
