package repository

import (
	"context"
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

func newTestInvoiceRepo(t *testing.T) (*InvoiceRepository, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	repo := NewInvoiceRepository(database.FromSqlx(mockDB.DB, logger.New("repository-test", "test")))
	return repo, mockDB
}

var invoiceTestColumns = []string{
	"id", "application_id", "kind", "items", "amount", "tax", "total",
	"currency", "status", "issue_date", "due_date", "paid_date",
	"payment_method", "version", "created_at", "updated_at",
}

func TestInvoiceRepository_Create(t *testing.T) {
	repo, mockDB := newTestInvoiceRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("INSERT INTO invoices").
		WithArgs(
			testutil.AnyUUID{}, "app-1", "registration", sqlmock.AnyArg(),
			500.0, 75.0, 575.0, "SAR", "pending", testutil.AnyTime{}, testutil.AnyTime{}, 1,
		).
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

	inv := &domain.Invoice{
		ApplicationID: "app-1",
		Kind:          domain.InvoiceKindRegistration,
		Items:         []domain.LineItem{{Description: "Registration fee", Quantity: 1, UnitPrice: 500}},
		Amount:        500,
		Tax:           75,
		Total:         575,
		Currency:      "SAR",
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, 30),
	}
	require.NoError(t, repo.Create(context.Background(), inv))

	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, domain.InvoicePending, inv.Status)
	assert.Equal(t, 1, inv.Version)
	mockDB.ExpectationsWereMet(t)
}

func TestInvoiceRepository_GetByID(t *testing.T) {
	repo, mockDB := newTestInvoiceRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("FROM invoices WHERE id =").
		WithArgs("inv-1").
		WillReturnRows(testutil.MockRows(invoiceTestColumns...).AddRow(
			"inv-1", "app-1", "renewal", []byte(`[{"description":"Renewal fee","quantity":1,"unit_price":250}]`),
			250.0, 37.5, 287.5, "SAR", "pending", now, now.AddDate(0, 0, 30), nil, nil, 1, now, now,
		))

	inv, err := repo.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, domain.InvoiceKindRenewal, inv.Kind)
	assert.InDelta(t, 287.5, inv.Total, 0.001)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Renewal fee", inv.Items[0].Description)
	mockDB.ExpectationsWereMet(t)
}

func TestInvoiceRepository_GetByID_NotFound(t *testing.T) {
	repo, mockDB := newTestInvoiceRepo(t)

	mockDB.ExpectQuery("FROM invoices WHERE id =").
		WithArgs("missing").
		WillReturnRows(testutil.MockRows(invoiceTestColumns...))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestInvoiceRepository_Update_VersionConflict(t *testing.T) {
	repo, mockDB := newTestInvoiceRepo(t)

	mockDB.ExpectExec("UPDATE invoices").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inv := &domain.Invoice{ID: "inv-1", Status: domain.InvoicePaid, Version: 1}
	err := repo.Update(context.Background(), inv)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 1, inv.Version)
	mockDB.ExpectationsWereMet(t)
}

func TestInvoiceRepository_ListPendingDueBefore(t *testing.T) {
	repo, mockDB := newTestInvoiceRepo(t)
	now := time.Now()

	mockDB.ExpectQuery("WHERE status = ").
		WithArgs("pending", testutil.AnyTime{}).
		WillReturnRows(testutil.MockRows(invoiceTestColumns...).AddRow(
			"inv-1", "app-1", "registration", []byte("[]"),
			500.0, 75.0, 575.0, "SAR", "pending", now.AddDate(0, 0, -40), now.AddDate(0, 0, -10), nil, nil, 1, now, now,
		))

	invoices, err := repo.ListPendingDueBefore(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, invoices, 1)
	assert.Equal(t, "inv-1", invoices[0].ID)
	assert.Equal(t, domain.InvoicePending, invoices[0].Status)
	mockDB.ExpectationsWereMet(t)
}
