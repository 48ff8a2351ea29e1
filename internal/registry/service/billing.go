package service

import (
	"context"
	"time"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/pkg/config"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// InvoiceStore is the persistence boundary for the billing ledger.
type InvoiceStore interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, params repository.InvoiceListParams) ([]*domain.Invoice, int64, error)
	ListPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Invoice, error)
	Update(ctx context.Context, inv *domain.Invoice) error
}

// BillingService issues invoices for registration and renewal events and
// records payments. Invoice status moves forward only; cancellation is the
// single exception and is limited to unpaid invoices.
type BillingService struct {
	invoices   InvoiceStore
	dispatcher NotificationDispatcher
	cfg        config.BillingConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewBillingService creates a new billing service
func NewBillingService(invoices InvoiceStore, dispatcher NotificationDispatcher, cfg config.BillingConfig, log *logger.Logger) *BillingService {
	return &BillingService{
		invoices:   invoices,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// IssueInvoice raises an invoice for a registration or renewal. A zero fee
// means the event is fee-free: no invoice is created and (nil, nil) is
// returned so the workflow can proceed straight to activation.
func (s *BillingService) IssueInvoice(ctx context.Context, app *domain.Application, kind domain.InvoiceKind) (*domain.Invoice, error) {
	var fee float64
	var description string
	switch kind {
	case domain.InvoiceKindRegistration:
		fee = s.cfg.RegistrationFee
		description = "Certification registration fee"
	case domain.InvoiceKindRenewal:
		fee = s.cfg.RenewalFee
		description = "Certification renewal fee"
	default:
		return nil, errors.BadRequest("unknown invoice kind: " + string(kind))
	}

	if fee == 0 {
		s.logger.Info().
			Str("application_id", app.ID).
			Str("kind", string(kind)).
			Msg("fee-free event, no invoice issued")
		return nil, nil
	}

	now := s.now()
	inv := &domain.Invoice{
		ApplicationID: app.ID,
		Kind:          kind,
		Items: []domain.LineItem{
			{Description: description, Quantity: 1, UnitPrice: fee},
		},
		Currency:  s.cfg.Currency,
		Status:    domain.InvoicePending,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, s.cfg.DueDays),
	}
	inv.ComputeTotals(s.cfg.TaxRate)

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("invoice_id", inv.ID).
		Str("application_id", app.ID).
		Str("kind", string(kind)).
		Float64("total", inv.Total).
		Msg("invoice issued")

	if s.dispatcher != nil {
		s.dispatcher.InvoiceIssued(ctx, messaging.InvoiceIssuedEvent{
			InvoiceID:     inv.ID,
			ApplicationID: inv.ApplicationID,
			Kind:          string(inv.Kind),
			Amount:        inv.Amount,
			Tax:           inv.Tax,
			Total:         inv.Total,
			Currency:      inv.Currency,
			DueDate:       inv.DueDate,
		})
	}
	return inv, nil
}

// GetInvoice gets an invoice by ID
func (s *BillingService) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

// ListInvoices lists invoices with filters
func (s *BillingService) ListInvoices(ctx context.Context, params repository.InvoiceListParams) ([]*domain.Invoice, int64, error) {
	return s.invoices.List(ctx, params)
}

// MarkPaid records payment of an invoice. Paying an already paid invoice is
// a no-op; a cancelled invoice cannot be paid. An overdue invoice can still
// be paid.
func (s *BillingService) MarkPaid(ctx context.Context, invoiceID, method string) (*domain.Invoice, error) {
	act, err := requireCapability(ctx, permissions.CapInvoiceManage)
	if err != nil {
		return nil, err
	}

	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case domain.InvoicePaid:
		return inv, nil
	case domain.InvoiceCancelled:
		return nil, errors.PreconditionFailed("cancelled invoice cannot be paid")
	}

	now := s.now()
	inv.Status = domain.InvoicePaid
	inv.PaidDate = &now
	if method != "" {
		inv.PaymentMethod = &method
	}

	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("invoice_id", inv.ID).
		Str("application_id", inv.ApplicationID).
		Str("actor_id", act.ID).
		Msg("invoice paid")

	if s.dispatcher != nil {
		s.dispatcher.InvoicePaid(ctx, messaging.InvoicePaidEvent{
			InvoiceID:     inv.ID,
			ApplicationID: inv.ApplicationID,
			Kind:          string(inv.Kind),
			PaidDate:      now,
			Method:        method,
		})
	}
	return inv, nil
}

// CancelInvoice voids an unpaid invoice. Cancelling an already cancelled
// invoice is a no-op.
func (s *BillingService) CancelInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	act, err := requireCapability(ctx, permissions.CapInvoiceManage)
	if err != nil {
		return nil, err
	}

	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.Status == domain.InvoiceCancelled {
		return inv, nil
	}
	if !inv.Cancellable() {
		return nil, errors.PreconditionFailed("paid invoice cannot be cancelled")
	}

	inv.Status = domain.InvoiceCancelled
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("invoice_id", inv.ID).
		Str("application_id", inv.ApplicationID).
		Str("actor_id", act.ID).
		Msg("invoice cancelled")

	if s.dispatcher != nil {
		s.dispatcher.InvoiceCancelled(ctx, messaging.InvoiceCancelledEvent{
			InvoiceID:     inv.ID,
			ApplicationID: inv.ApplicationID,
			CancelledBy:   act.ID,
		})
	}
	return inv, nil
}

// SweepOverdue flips pending invoices past their due date to overdue and
// publishes an event for each. Conflicting concurrent updates are skipped
// and picked up on the next sweep.
func (s *BillingService) SweepOverdue(ctx context.Context) (int, error) {
	due, err := s.invoices.ListPendingDueBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, inv := range due {
		inv.Status = domain.InvoiceOverdue
		if err := s.invoices.Update(ctx, inv); err != nil {
			s.logger.Warn().Err(err).Str("invoice_id", inv.ID).Msg("overdue sweep skipped invoice")
			continue
		}
		flipped++

		if s.dispatcher != nil {
			s.dispatcher.InvoiceOverdue(ctx, messaging.InvoiceOverdueEvent{
				InvoiceID:     inv.ID,
				ApplicationID: inv.ApplicationID,
				DueDate:       inv.DueDate,
			})
		}
	}
	return flipped, nil
}
