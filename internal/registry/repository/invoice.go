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

type invoiceRow struct {
	ID            string          `db:"id"`
	ApplicationID string          `db:"application_id"`
	Kind          string          `db:"kind"`
	Items         json.RawMessage `db:"items"`
	Amount        float64         `db:"amount"`
	Tax           float64         `db:"tax"`
	Total         float64         `db:"total"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`
	IssueDate     time.Time       `db:"issue_date"`
	DueDate       time.Time       `db:"due_date"`
	PaidDate      *time.Time      `db:"paid_date"`
	PaymentMethod *string         `db:"payment_method"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *invoiceRow) toDomain() (*domain.Invoice, error) {
	inv := &domain.Invoice{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Kind:          domain.InvoiceKind(r.Kind),
		Amount:        r.Amount,
		Tax:           r.Tax,
		Total:         r.Total,
		Currency:      r.Currency,
		Status:        domain.InvoiceStatus(r.Status),
		IssueDate:     r.IssueDate,
		DueDate:       r.DueDate,
		PaidDate:      r.PaidDate,
		PaymentMethod: r.PaymentMethod,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &inv.Items); err != nil {
			return nil, errors.Internal("corrupt line items for invoice " + r.ID)
		}
	}
	return inv, nil
}

// InvoiceRepository handles invoice persistence
type InvoiceRepository struct {
	db *database.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `
	id, application_id, kind, items, amount, tax, total, currency, status,
	issue_date, due_date, paid_date, payment_method, version, created_at, updated_at
`

// Create inserts a new invoice
func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = domain.InvoicePending
	}
	inv.Version = 1

	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return errors.Internal("failed to encode line items")
	}

	query := `
		INSERT INTO invoices (id, application_id, kind, items, amount, tax, total,
		                      currency, status, issue_date, due_date, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		inv.ID, inv.ApplicationID, inv.Kind, itemsJSON, inv.Amount, inv.Tax,
		inv.Total, inv.Currency, inv.Status, inv.IssueDate, inv.DueDate, inv.Version,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// GetByID gets an invoice by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var row invoiceRow
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("invoice")
		}
		return nil, err
	}
	return row.toDomain()
}

// InvoiceListParams holds parameters for listing invoices
type InvoiceListParams struct {
	ApplicationID *string
	Status        *domain.InvoiceStatus
	Page          int
	PerPage       int
}

// List lists invoices with filters
func (r *InvoiceRepository) List(ctx context.Context, params InvoiceListParams) ([]*domain.Invoice, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 20
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM invoices WHERE 1=1`
	args := []interface{}{}

	if params.ApplicationID != nil {
		args = append(args, *params.ApplicationID)
		cond := ` AND application_id = $` + strconv.Itoa(len(args))
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
	query += ` ORDER BY issue_date DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	invoices := make([]*domain.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, nil
}

// ListPendingDueBefore returns pending invoices whose due date has passed.
// Used by the overdue sweep.
func (r *InvoiceRepository) ListPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status = $1 AND due_date < $2
		ORDER BY due_date ASC`

	var rows []invoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, string(domain.InvoicePending), cutoff); err != nil {
		return nil, err
	}

	invoices := make([]*domain.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// Update persists invoice status changes using optimistic concurrency,
// matching the application repository's version discipline.
func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $1, paid_date = $2, payment_method = $3,
		    version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		inv.Status, inv.PaidDate, inv.PaymentMethod, inv.ID, inv.Version,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.VersionConflict("invoice")
	}

	inv.Version++
	return nil
}
