// Package billing builds, renders and delivers the invoice for a
// settled order. Rendering and dispatch collaborate with external
// services; both are treated as unreliable.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"print-order-system/models"
)

// GST is charged tax-inclusive and split evenly between the central and
// state components.
var gstDivisor = decimal.NewFromFloat(1.18)

// Seller is the merchant party printed on every invoice.
type Seller struct {
	Name    string
	Email   string
	Address string
	TaxID   string
}

// BuildDocument assembles the structured invoice data for an order:
// line items, the CGST/SGST breakdown and both parties. Deterministic
// for fixed inputs.
func BuildDocument(o models.Order, invoiceID string, seller Seller, issuedAt time.Time) models.InvoiceDocument {
	taxable, cgst, sgst := splitTax(o.TotalMinor)

	return models.InvoiceDocument{
		InvoiceID:    invoiceID,
		OrderID:      o.ID,
		TrackingCode: o.TrackingCode,
		IssuedAt:     issuedAt,
		Seller: models.Party{
			Name:    seller.Name,
			Email:   seller.Email,
			Address: seller.Address,
			TaxID:   seller.TaxID,
		},
		Buyer: models.Party{
			Name:    o.CustomerName,
			Email:   o.CustomerEmail,
			Address: formatAddress(o.DeliveryAddress),
		},
		Lines: []models.InvoiceLine{
			{
				Description: fmt.Sprintf("%s x%d", o.Product, o.Quantity),
				Quantity:    o.Quantity,
				UnitMinor:   o.UnitPriceMinor,
				TotalMinor:  o.TotalMinor,
			},
		},
		TaxableMinor: taxable,
		CGSTMinor:    cgst,
		SGSTMinor:    sgst,
		TotalMinor:   o.TotalMinor,
		Currency:     o.Currency,
	}
}

// splitTax decomposes a tax-inclusive gross amount into taxable value
// plus the two GST components. The components always sum back to the
// gross amount exactly.
func splitTax(grossMinor int64) (taxable, cgst, sgst int64) {
	gross := decimal.NewFromInt(grossMinor)
	taxableDec := gross.Div(gstDivisor).Round(0)

	taxable = taxableDec.IntPart()
	tax := grossMinor - taxable
	cgst = tax / 2
	sgst = tax - cgst
	return taxable, cgst, sgst
}

func formatAddress(a models.Address) string {
	out := a.Line1
	if a.Line2 != "" {
		out += ", " + a.Line2
	}
	return fmt.Sprintf("%s, %s, %s %s", out, a.City, a.State, a.PostalCode)
}
