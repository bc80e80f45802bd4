package models

import (
	"fmt"
	"time"
)

// SettlementStatus tracks whether payment for an order has been captured.
type SettlementStatus string

const (
	SettlementUnsettled SettlementStatus = "UNSETTLED"
	SettlementSettled   SettlementStatus = "SETTLED"
	SettlementFailed    SettlementStatus = "FAILED"
	SettlementRefunded  SettlementStatus = "REFUNDED"
)

// FulfillmentStatus tracks the order's position in its production and
// shipping lifecycle.
type FulfillmentStatus string

const (
	FulfillmentPlaced       FulfillmentStatus = "PLACED"
	FulfillmentAcknowledged FulfillmentStatus = "ACKNOWLEDGED"
	FulfillmentInProduction FulfillmentStatus = "IN_PRODUCTION"
	FulfillmentShipped      FulfillmentStatus = "SHIPPED"
	FulfillmentDelivered    FulfillmentStatus = "DELIVERED"
	FulfillmentCancelled    FulfillmentStatus = "CANCELLED"
	FulfillmentFailed       FulfillmentStatus = "FAILED"
)

// RecordOrigin marks whether a record's identity was assigned by the
// store or synthesized locally after the store missed its deadline.
// Fallback records are the targets of later reconciliation.
type RecordOrigin string

const (
	OriginStore    RecordOrigin = "STORE"
	OriginFallback RecordOrigin = "FALLBACK"
)

// settlementNext is the exhaustive forward transition table for the
// settlement axis. Refunds are representable for the admin surface but
// are never produced by the checkout flow itself.
var settlementNext = map[SettlementStatus][]SettlementStatus{
	SettlementUnsettled: {SettlementSettled, SettlementFailed},
	SettlementSettled:   {SettlementRefunded},
	SettlementFailed:    {},
	SettlementRefunded:  {},
}

// fulfillmentNext is the exhaustive transition table for the fulfillment
// axis: one forward step at a time, with the absorbing CANCELLED and
// FAILED states reachable from any non-terminal state.
var fulfillmentNext = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPlaced:       {FulfillmentAcknowledged, FulfillmentCancelled, FulfillmentFailed},
	FulfillmentAcknowledged: {FulfillmentInProduction, FulfillmentCancelled, FulfillmentFailed},
	FulfillmentInProduction: {FulfillmentShipped, FulfillmentCancelled, FulfillmentFailed},
	FulfillmentShipped:      {FulfillmentDelivered, FulfillmentCancelled, FulfillmentFailed},
	FulfillmentDelivered:    {},
	FulfillmentCancelled:    {},
	FulfillmentFailed:       {},
}

// fulfillmentProgress maps each fulfillment state to its display
// percentage. Progress is derived here and nowhere else; the absorbing
// terminals map to the ceiling so progress never decreases.
var fulfillmentProgress = map[FulfillmentStatus]int{
	FulfillmentPlaced:       20,
	FulfillmentAcknowledged: 20,
	FulfillmentInProduction: 50,
	FulfillmentShipped:      80,
	FulfillmentDelivered:    100,
	FulfillmentCancelled:    100,
	FulfillmentFailed:       100,
}

// CanTransitionSettlement reports whether the settlement axis may move
// from one state to another. Re-applying the current state is allowed
// and treated as a no-op by callers.
func CanTransitionSettlement(from, to SettlementStatus) bool {
	if from == to {
		return true
	}
	for _, next := range settlementNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionFulfillment reports whether the fulfillment axis may move
// from one state to another. Backward moves and skips past the next
// step are refused; re-applying the current state is allowed.
func CanTransitionFulfillment(from, to FulfillmentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range fulfillmentNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Progress returns the display percentage for a fulfillment state.
// Unknown states report 0.
func Progress(status FulfillmentStatus) int {
	return fulfillmentProgress[status]
}

// ValidSettlementStatus reports whether s is a known settlement state.
func ValidSettlementStatus(s SettlementStatus) bool {
	_, ok := settlementNext[s]
	return ok
}

// ValidFulfillmentStatus reports whether s is a known fulfillment state.
func ValidFulfillmentStatus(s FulfillmentStatus) bool {
	_, ok := fulfillmentNext[s]
	return ok
}

// Address is the delivery address captured at checkout.
type Address struct {
	Line1      string `json:"line1" bson:"line1"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postal_code" bson:"postal_code"`
}

// Order is the durable record of one print job moving through the
// order-to-cash pipeline.
type Order struct {
	ID              string            `json:"id" bson:"_id"`
	TrackingCode    string            `json:"tracking_code" bson:"tracking_code"`
	CustomerID      string            `json:"customer_id" bson:"customer_id"`
	CustomerName    string            `json:"customer_name" bson:"customer_name"`
	CustomerEmail   string            `json:"customer_email" bson:"customer_email"`
	Product         string            `json:"product" bson:"product"`
	Quantity        int               `json:"quantity" bson:"quantity"`
	UnitPriceMinor  int64             `json:"unit_price_minor" bson:"unit_price_minor"`
	TotalMinor      int64             `json:"total_minor" bson:"total_minor"`
	Currency        string            `json:"currency" bson:"currency"`
	DeliveryAddress Address           `json:"delivery_address" bson:"delivery_address"`
	ArtifactRef     string            `json:"artifact_ref" bson:"artifact_ref"`
	Settlement      SettlementStatus  `json:"settlement" bson:"settlement"`
	Fulfillment     FulfillmentStatus `json:"fulfillment" bson:"fulfillment"`
	Progress        int               `json:"progress" bson:"progress"`
	GatewayOrderRef string            `json:"gateway_order_ref,omitempty" bson:"gateway_order_ref,omitempty"`
	PaymentRef      string            `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	SettlementSrc   OutcomeSource     `json:"settlement_source,omitempty" bson:"settlement_source,omitempty"`
	InvoiceID       string            `json:"invoice_id,omitempty" bson:"invoice_id,omitempty"`
	Origin          RecordOrigin      `json:"origin" bson:"origin"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" bson:"updated_at"`
}

// OrderDraft is a validated checkout submission, before the store has
// assigned an identity.
type OrderDraft struct {
	CustomerID      string  `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	CustomerEmail   string  `json:"customer_email"`
	Product         string  `json:"product"`
	Quantity        int     `json:"quantity"`
	UnitPriceMinor  int64   `json:"unit_price_minor"`
	Currency        string  `json:"currency"`
	DeliveryAddress Address `json:"delivery_address"`
	ArtifactRef     string  `json:"artifact_ref"`
}

// TotalMinor returns the order total in minor currency units.
func (d OrderDraft) TotalMinor() int64 {
	return d.UnitPriceMinor * int64(d.Quantity)
}

// Validate rejects malformed drafts before any external call is made.
func (d OrderDraft) Validate() error {
	switch {
	case d.CustomerID == "":
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	case d.CustomerEmail == "":
		return fmt.Errorf("%w: customer email is required", ErrValidation)
	case d.Product == "":
		return fmt.Errorf("%w: product is required", ErrValidation)
	case d.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrValidation, d.Quantity)
	case d.UnitPriceMinor <= 0:
		return fmt.Errorf("%w: unit price must be positive, got %d", ErrValidation, d.UnitPriceMinor)
	case d.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrValidation)
	case d.DeliveryAddress.Line1 == "" || d.DeliveryAddress.City == "":
		return fmt.Errorf("%w: delivery address is incomplete", ErrValidation)
	}
	return nil
}

// NewOrder builds the initial order record for a draft. The store
// assigns the id when empty; tracking code and timestamps come from the
// caller so workflow code stays deterministic.
func NewOrder(draft OrderDraft, trackingCode string, now time.Time) Order {
	return Order{
		TrackingCode:    trackingCode,
		CustomerID:      draft.CustomerID,
		CustomerName:    draft.CustomerName,
		CustomerEmail:   draft.CustomerEmail,
		Product:         draft.Product,
		Quantity:        draft.Quantity,
		UnitPriceMinor:  draft.UnitPriceMinor,
		TotalMinor:      draft.TotalMinor(),
		Currency:        draft.Currency,
		DeliveryAddress: draft.DeliveryAddress,
		ArtifactRef:     draft.ArtifactRef,
		Settlement:      SettlementUnsettled,
		Fulfillment:     FulfillmentPlaced,
		Progress:        Progress(FulfillmentPlaced),
		Origin:          OriginStore,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
