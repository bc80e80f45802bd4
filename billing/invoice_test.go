package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"print-order-system/models"
)

func TestSplitTax(t *testing.T) {
	tests := []struct {
		name  string
		gross int64
	}{
		{"Sticker order", 150000},
		{"Small amount", 118},
		{"One minor unit", 1},
		{"Odd tax split", 100},
		{"Large order", 99999937},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taxable, cgst, sgst := splitTax(tt.gross)

			assert.Equal(t, tt.gross, taxable+cgst+sgst, "components must sum back to gross")
			assert.GreaterOrEqual(t, taxable, int64(0))
			assert.GreaterOrEqual(t, cgst, int64(0))
			assert.GreaterOrEqual(t, sgst, int64(0))
			// CGST and SGST split the tax evenly within a minor unit.
			assert.LessOrEqual(t, sgst-cgst, int64(1))
		})
	}
}

func TestBuildDocument(t *testing.T) {
	order := models.Order{
		ID:             "ord-1",
		TrackingCode:   "PO-CUST42-ABC234",
		CustomerName:   "U One",
		CustomerEmail:  "u1@example.com",
		Product:        "sticker",
		Quantity:       500,
		UnitPriceMinor: 300,
		TotalMinor:     150000,
		Currency:       "INR",
		DeliveryAddress: models.Address{
			Line1: "42 Press Lane", City: "Pune", State: "MH", PostalCode: "411001",
		},
	}
	seller := Seller{Name: "PrintDesk", Email: "billing@printdesk.example", TaxID: "27AAAAA0000A1Z5"}
	issuedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	doc := BuildDocument(order, "INV-PO-CUST42-ABC234-260314090000", seller, issuedAt)

	assert.Equal(t, "ord-1", doc.OrderID)
	assert.Equal(t, "PO-CUST42-ABC234", doc.TrackingCode)
	assert.Equal(t, issuedAt, doc.IssuedAt)
	assert.Equal(t, "PrintDesk", doc.Seller.Name)
	assert.Equal(t, "U One", doc.Buyer.Name)
	assert.Contains(t, doc.Buyer.Address, "Pune")

	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "sticker x500", doc.Lines[0].Description)
	assert.Equal(t, int64(150000), doc.Lines[0].TotalMinor)

	assert.Equal(t, int64(150000), doc.TotalMinor)
	assert.Equal(t, doc.TotalMinor, doc.TaxableMinor+doc.CGSTMinor+doc.SGSTMinor)
	assert.False(t, doc.Placeholder)

	// Deterministic for fixed inputs.
	again := BuildDocument(order, doc.InvoiceID, seller, issuedAt)
	assert.Equal(t, doc, again)
}

func TestPlaceholder(t *testing.T) {
	doc := models.InvoiceDocument{
		InvoiceID:    "INV-PO-CUST42-ABC234-260314090000",
		OrderID:      "ord-1",
		TrackingCode: "PO-CUST42-ABC234",
		TotalMinor:   150000,
		Currency:     "INR",
	}

	rendered := Placeholder(doc)
	assert.True(t, rendered.Placeholder)
	assert.Contains(t, rendered.DocumentRef, doc.InvoiceID)
	assert.NotEmpty(t, rendered.Checksum)
}
