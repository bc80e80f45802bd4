package models

import "time"

// Party identifies one side of an invoice.
type Party struct {
	Name    string `json:"name" bson:"name"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty" bson:"tax_id,omitempty"`
}

// InvoiceLine is a single billed line item, amounts in minor units.
type InvoiceLine struct {
	Description string `json:"description" bson:"description"`
	Quantity    int    `json:"quantity" bson:"quantity"`
	UnitMinor   int64  `json:"unit_minor" bson:"unit_minor"`
	TotalMinor  int64  `json:"total_minor" bson:"total_minor"`
}

// InvoiceDocument is the structured input handed to the document
// renderer: line items, the two-component tax breakdown and both
// parties. All amounts are tax-inclusive minor units.
type InvoiceDocument struct {
	InvoiceID    string        `json:"invoice_id"`
	OrderID      string        `json:"order_id"`
	TrackingCode string        `json:"tracking_code"`
	IssuedAt     time.Time     `json:"issued_at"`
	Seller       Party         `json:"seller"`
	Buyer        Party         `json:"buyer"`
	Lines        []InvoiceLine `json:"lines"`
	TaxableMinor int64         `json:"taxable_minor"`
	CGSTMinor    int64         `json:"cgst_minor"`
	SGSTMinor    int64         `json:"sgst_minor"`
	TotalMinor   int64         `json:"total_minor"`
	Currency     string        `json:"currency"`
	Placeholder  bool          `json:"placeholder,omitempty"`
}

// DeliveryOutcome records the advisory result of shipping the invoice
// to the customer. It never gates order completion.
type DeliveryOutcome struct {
	Sent   bool      `json:"sent" bson:"sent"`
	Detail string    `json:"detail,omitempty" bson:"detail,omitempty"`
	At     time.Time `json:"at" bson:"at"`
}

// Invoice is the persisted billing artifact for a settled order. An
// order has at most one invoice id; re-invocation with an existing id
// is a no-op.
type Invoice struct {
	ID           string           `json:"id" bson:"_id"`
	OrderID      string           `json:"order_id" bson:"order_id"`
	TrackingCode string           `json:"tracking_code" bson:"tracking_code"`
	DocumentRef  string           `json:"document_ref" bson:"document_ref"`
	Placeholder  bool             `json:"placeholder" bson:"placeholder"`
	Delivery     *DeliveryOutcome `json:"delivery,omitempty" bson:"delivery,omitempty"`
	CreatedAt    time.Time        `json:"created_at" bson:"created_at"`
}
