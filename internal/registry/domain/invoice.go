package domain

import (
	"math"
	"time"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// InvoiceKind ties an invoice to the workflow event that raised it.
type InvoiceKind string

const (
	InvoiceKindRegistration InvoiceKind = "registration"
	InvoiceKindRenewal      InvoiceKind = "renewal"
)

// LineItem is one billable line on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total returns quantity times unit price.
func (li LineItem) Total() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

// Invoice is a billing record tied to a registration or renewal event.
// Status transitions are monotonic except cancellation, which is allowed
// from pending or overdue only.
type Invoice struct {
	ID            string        `db:"id" json:"id"`
	ApplicationID string        `db:"application_id" json:"application_id"`
	Kind          InvoiceKind   `db:"kind" json:"kind"`
	Items         []LineItem    `db:"-" json:"items"`
	Amount        float64       `db:"amount" json:"amount"`
	Tax           float64       `db:"tax" json:"tax"`
	Total         float64       `db:"total" json:"total"`
	Currency      string        `db:"currency" json:"currency"`
	Status        InvoiceStatus `db:"status" json:"status"`
	IssueDate     time.Time     `db:"issue_date" json:"issue_date"`
	DueDate       time.Time     `db:"due_date" json:"due_date"`
	PaidDate      *time.Time    `db:"paid_date" json:"paid_date,omitempty"`
	PaymentMethod *string       `db:"payment_method" json:"payment_method,omitempty"`
	Version       int           `db:"version" json:"version"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Cancellable reports whether the invoice may still be cancelled.
func (i *Invoice) Cancellable() bool {
	return i.Status == InvoicePending || i.Status == InvoiceOverdue
}

// RoundMoney rounds a monetary amount to 2 decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals fills Amount, Tax and Total from the line items and tax rate.
func (i *Invoice) ComputeTotals(taxRate float64) {
	var amount float64
	for _, item := range i.Items {
		amount += item.Total()
	}
	i.Amount = RoundMoney(amount)
	i.Tax = RoundMoney(i.Amount * taxRate)
	i.Total = RoundMoney(i.Amount + i.Tax)
}
