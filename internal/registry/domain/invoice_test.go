package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	inv := &Invoice{
		Items: []LineItem{
			{Description: "Registration fee", Quantity: 1, UnitPrice: 500},
			{Description: "Expedited processing", Quantity: 2, UnitPrice: 50},
		},
	}
	inv.ComputeTotals(0.15)

	assert.InDelta(t, 600.0, inv.Amount, 0.001)
	assert.InDelta(t, 90.0, inv.Tax, 0.001)
	assert.InDelta(t, 690.0, inv.Total, 0.001)
}

func TestComputeTotals_Rounding(t *testing.T) {
	inv := &Invoice{
		Items: []LineItem{{Quantity: 3, UnitPrice: 33.333}},
	}
	inv.ComputeTotals(0.15)

	assert.InDelta(t, 100.0, inv.Amount, 0.001)
	assert.InDelta(t, 15.0, inv.Tax, 0.001)
	assert.InDelta(t, 115.0, inv.Total, 0.001)
}

func TestInvoiceCancellable(t *testing.T) {
	assert.True(t, (&Invoice{Status: InvoicePending}).Cancellable())
	assert.True(t, (&Invoice{Status: InvoiceOverdue}).Cancellable())
	assert.False(t, (&Invoice{Status: InvoicePaid}).Cancellable())
	assert.False(t, (&Invoice{Status: InvoiceCancelled}).Cancellable())
}
