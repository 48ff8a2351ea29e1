package events

import (
	"context"

	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
)

// RegistryEventPublisher publishes registry and billing events. Application
// and document events go to the registry exchange; invoice events go to the
// billing exchange so payment integrations can bind without seeing workflow
// traffic.
//
// All methods are safe on a nil receiver so callers can run without a broker
// in development.
type RegistryEventPublisher struct {
	registry *messaging.Publisher
	billing  *messaging.Publisher
	logger   *logger.Logger
}

// NewRegistryEventPublisher creates a new registry event publisher
func NewRegistryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*RegistryEventPublisher, error) {
	registry, err := messaging.NewPublisher(rmq, messaging.ExchangeRegistryEvents, "registry-service", log)
	if err != nil {
		return nil, err
	}
	billing, err := messaging.NewPublisher(rmq, messaging.ExchangeBillingEvents, "registry-service", log)
	if err != nil {
		return nil, err
	}

	return &RegistryEventPublisher{
		registry: registry,
		billing:  billing,
		logger:   log,
	}, nil
}

// ApplicationTransitioned publishes a workflow transition event
func (p *RegistryEventPublisher) ApplicationTransitioned(ctx context.Context, eventType string, data messaging.ApplicationTransitionedEvent) {
	if p == nil {
		return
	}
	if err := p.registry.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("application_id", data.ApplicationID).
			Str("event_type", eventType).
			Msg("failed to publish application transition event")
	}
}

// ProfileEdited publishes a profile edited event
func (p *RegistryEventPublisher) ProfileEdited(ctx context.Context, data messaging.ApplicationProfileEditedEvent) {
	if p == nil {
		return
	}
	if err := p.registry.Publish(ctx, messaging.EventApplicationProfileEdited, data); err != nil {
		p.logger.Error().Err(err).Str("application_id", data.ApplicationID).Msg("failed to publish profile edited event")
	}
}

// DocumentSubmitted publishes a document submitted event
func (p *RegistryEventPublisher) DocumentSubmitted(ctx context.Context, data messaging.DocumentSubmittedEvent) {
	if p == nil {
		return
	}
	if err := p.registry.Publish(ctx, messaging.EventDocumentSubmitted, data); err != nil {
		p.logger.Error().Err(err).Str("document_id", data.DocumentID).Msg("failed to publish document submitted event")
	}
}

// DocumentVerified publishes a document verified event
func (p *RegistryEventPublisher) DocumentVerified(ctx context.Context, data messaging.DocumentVerifiedEvent) {
	if p == nil {
		return
	}
	if err := p.registry.Publish(ctx, messaging.EventDocumentVerified, data); err != nil {
		p.logger.Error().Err(err).Str("document_id", data.DocumentID).Msg("failed to publish document verified event")
	}
}

// DocumentRejected publishes a document rejected event
func (p *RegistryEventPublisher) DocumentRejected(ctx context.Context, data messaging.DocumentRejectedEvent) {
	if p == nil {
		return
	}
	if err := p.registry.Publish(ctx, messaging.EventDocumentRejected, data); err != nil {
		p.logger.Error().Err(err).Str("document_id", data.DocumentID).Msg("failed to publish document rejected event")
	}
}

// InvoiceIssued publishes an invoice issued event
func (p *RegistryEventPublisher) InvoiceIssued(ctx context.Context, data messaging.InvoiceIssuedEvent) {
	if p == nil {
		return
	}
	if err := p.billing.Publish(ctx, messaging.EventInvoiceIssued, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", data.InvoiceID).Msg("failed to publish invoice issued event")
	}
}

// InvoicePaid publishes an invoice paid event
func (p *RegistryEventPublisher) InvoicePaid(ctx context.Context, data messaging.InvoicePaidEvent) {
	if p == nil {
		return
	}
	if err := p.billing.Publish(ctx, messaging.EventInvoicePaid, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", data.InvoiceID).Msg("failed to publish invoice paid event")
	}
}

// InvoiceOverdue publishes an invoice overdue event
func (p *RegistryEventPublisher) InvoiceOverdue(ctx context.Context, data messaging.InvoiceOverdueEvent) {
	if p == nil {
		return
	}
	if err := p.billing.Publish(ctx, messaging.EventInvoiceOverdue, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", data.InvoiceID).Msg("failed to publish invoice overdue event")
	}
}

// InvoiceCancelled publishes an invoice cancelled event
func (p *RegistryEventPublisher) InvoiceCancelled(ctx context.Context, data messaging.InvoiceCancelledEvent) {
	if p == nil {
		return
	}
	if err := p.billing.Publish(ctx, messaging.EventInvoiceCancelled, data); err != nil {
		p.logger.Error().Err(err).Str("invoice_id", data.InvoiceID).Msg("failed to publish invoice cancelled event")
	}
}
