package service

import (
	"context"

	"github.com/certflow/certportal-backend/pkg/messaging"
)

// NotificationDispatcher decouples the workflow from the transport that
// carries its notifications. The production implementation publishes to
// RabbitMQ; tests plug in a recorder.
//
// Dispatch is fire-and-forget: implementations log failures instead of
// returning them, so a broker outage never rolls back a committed
// transition.
type NotificationDispatcher interface {
	ApplicationTransitioned(ctx context.Context, eventType string, data messaging.ApplicationTransitionedEvent)
	ProfileEdited(ctx context.Context, data messaging.ApplicationProfileEditedEvent)

	DocumentSubmitted(ctx context.Context, data messaging.DocumentSubmittedEvent)
	DocumentVerified(ctx context.Context, data messaging.DocumentVerifiedEvent)
	DocumentRejected(ctx context.Context, data messaging.DocumentRejectedEvent)

	InvoiceIssued(ctx context.Context, data messaging.InvoiceIssuedEvent)
	InvoicePaid(ctx context.Context, data messaging.InvoicePaidEvent)
	InvoiceOverdue(ctx context.Context, data messaging.InvoiceOverdueEvent)
	InvoiceCancelled(ctx context.Context, data messaging.InvoiceCancelledEvent)
}
