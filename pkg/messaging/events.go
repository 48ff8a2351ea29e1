package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Application lifecycle events
	EventApplicationSubmitted      = "application.submitted"
	EventApplicationClaimed        = "application.claimed"
	EventApplicationApproved       = "application.approved"
	EventApplicationRejected       = "application.rejected"
	EventApplicationActivated      = "application.activated"
	EventApplicationSuspended      = "application.suspended"
	EventApplicationResumed        = "application.resumed"
	EventApplicationRevoked        = "application.revoked"
	EventApplicationExpiring       = "application.expiring"
	EventApplicationExpired        = "application.expired"
	EventApplicationRenewalOpened  = "application.renewal.requested"
	EventApplicationRenewed        = "application.renewed"
	EventApplicationProfileEdited  = "application.profile.edited"

	// Document events
	EventDocumentSubmitted = "document.submitted"
	EventDocumentVerified  = "document.verified"
	EventDocumentRejected  = "document.rejected"

	// Invoice events
	EventInvoiceIssued    = "invoice.issued"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceOverdue   = "invoice.overdue"
	EventInvoiceCancelled = "invoice.cancelled"
)

// Exchange names
const (
	ExchangeRegistryEvents = "registry.events"
	ExchangeBillingEvents  = "billing.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Application Events

// ApplicationTransitionedEvent is the common payload carried by every
// workflow transition event.
type ApplicationTransitionedEvent struct {
	ApplicationID string  `json:"application_id"`
	ApplicantID   string  `json:"applicant_id"`
	FromStatus    string  `json:"from_status"`
	ToStatus      string  `json:"to_status"`
	ActorID       string  `json:"actor_id"`
	Reason        *string `json:"reason,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Level         string  `json:"level,omitempty"`
}

// ApplicationProfileEditedEvent is published when a registrar edits a
// submitted application's profile.
type ApplicationProfileEditedEvent struct {
	ApplicationID string         `json:"application_id"`
	EditorID      string         `json:"editor_id"`
	Reason        string         `json:"reason"`
	Fields        map[string]any `json:"fields"` // Changed fields
}

// Document Events

// DocumentSubmittedEvent is published when a document version is submitted
type DocumentSubmittedEvent struct {
	DocumentID    string `json:"document_id"`
	ApplicationID string `json:"application_id"`
	DocumentType  string `json:"document_type"`
	Version       int    `json:"version"`
	Required      bool   `json:"required"`
}

// DocumentVerifiedEvent is published when a document is verified
type DocumentVerifiedEvent struct {
	DocumentID    string `json:"document_id"`
	ApplicationID string `json:"application_id"`
	VerifierID    string `json:"verifier_id"`
}

// DocumentRejectedEvent is published when a document is rejected
type DocumentRejectedEvent struct {
	DocumentID    string `json:"document_id"`
	ApplicationID string `json:"application_id"`
	VerifierID    string `json:"verifier_id"`
	Reason        string `json:"reason"`
}

// Invoice Events

// InvoiceIssuedEvent is published when an invoice is issued
type InvoiceIssuedEvent struct {
	InvoiceID     string    `json:"invoice_id"`
	ApplicationID string    `json:"application_id"`
	Kind          string    `json:"kind"` // registration, renewal
	Amount        float64   `json:"amount"`
	Tax           float64   `json:"tax"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
	DueDate       time.Time `json:"due_date"`
}

// InvoicePaidEvent is published when an invoice is paid. The workflow
// listens to this to activate approved applications.
type InvoicePaidEvent struct {
	InvoiceID     string    `json:"invoice_id"`
	ApplicationID string    `json:"application_id"`
	Kind          string    `json:"kind"`
	PaidDate      time.Time `json:"paid_date"`
	Method        string    `json:"method"`
}

// InvoiceOverdueEvent is published by the overdue sweep
type InvoiceOverdueEvent struct {
	InvoiceID     string    `json:"invoice_id"`
	ApplicationID string    `json:"application_id"`
	DueDate       time.Time `json:"due_date"`
}

// InvoiceCancelledEvent is published when an invoice is cancelled
type InvoiceCancelledEvent struct {
	InvoiceID     string `json:"invoice_id"`
	ApplicationID string `json:"application_id"`
	CancelledBy   string `json:"cancelled_by"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
