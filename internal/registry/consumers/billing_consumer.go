package consumers

import (
	"context"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/service"
	"github.com/certflow/certportal-backend/pkg/actor"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
)

// BillingEventConsumer drives the workflow from billing events: a paid
// registration invoice activates the approved application, a paid renewal
// invoice completes the pending renewal. Handlers run as the system actor.
type BillingEventConsumer struct {
	consumer *messaging.Consumer
	workflow *service.WorkflowService
	logger   *logger.Logger
}

// NewBillingEventConsumer creates a new billing event consumer
func NewBillingEventConsumer(rmq *messaging.RabbitMQ, workflow *service.WorkflowService, log *logger.Logger) (*BillingEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "registry-service.billing-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeBillingEvents, "invoice.#"); err != nil {
		return nil, err
	}

	c := &BillingEventConsumer{
		consumer: consumer,
		workflow: workflow,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventInvoicePaid, c.handleInvoicePaid)

	return c, nil
}

// Start starts consuming messages
func (c *BillingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *BillingEventConsumer) handleInvoicePaid(ctx context.Context, event *messaging.Event) error {
	var data messaging.InvoicePaidEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("invoice_id", data.InvoiceID).
		Str("application_id", data.ApplicationID).
		Str("kind", data.Kind).
		Msg("received invoice paid event")

	ctx = actor.WithActor(ctx, actor.SystemActor())

	var err error
	switch domain.InvoiceKind(data.Kind) {
	case domain.InvoiceKindRegistration:
		_, err = c.workflow.Activate(ctx, data.ApplicationID)
	case domain.InvoiceKindRenewal:
		_, err = c.workflow.CompleteRenewal(ctx, data.ApplicationID)
	default:
		c.logger.Warn().Str("kind", data.Kind).Msg("unknown invoice kind, ignoring")
		return nil
	}

	// A manual activation may have already run; a duplicate delivery then
	// lands on an already-active application. Treat that as handled rather
	// than cycling the message through the retry queue.
	if errors.Is(err, errors.ErrInvalidTransition) {
		c.logger.Warn().
			Str("application_id", data.ApplicationID).
			Err(err).
			Msg("invoice paid event arrived after application already transitioned")
		return nil
	}
	return err
}
