// Package store is the gateway to the persistent order and invoice
// records: a document store keyed by order id with partial field
// updates and equality-filtered ordered queries.
package store

import (
	"context"
	"errors"
	"time"

	"print-order-system/models"
)

var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("record not found")

	// ErrPermissionDenied must surface distinctly and is never retried
	// as transient.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailable marks a store failure eligible for bounded-wait
	// fallback handling.
	ErrUnavailable = errors.New("store unavailable")

	// ErrVerificationFailed reports that a write was issued but the
	// change was not readable back within the verification bound. The
	// caller decides whether to retry or degrade.
	ErrVerificationFailed = errors.New("write verification failed")
)

// Field names accepted by UpdateOrder. They match the order document's
// persisted field names.
const (
	FieldSettlement      = "settlement"
	FieldFulfillment     = "fulfillment"
	FieldProgress        = "progress"
	FieldGatewayOrderRef = "gateway_order_ref"
	FieldPaymentRef      = "payment_ref"
	FieldSettlementSrc   = "settlement_source"
	FieldInvoiceID       = "invoice_id"
	FieldUpdatedAt       = "updated_at"
)

// OrderStore is the order record gateway. Writes advance the order's
// last-updated marker.
type OrderStore interface {
	// CreateOrder persists a new order, assigning the id when o.ID is
	// empty, and returns the stored id.
	CreateOrder(ctx context.Context, o models.Order) (string, error)

	// GetOrder returns the order or ErrNotFound.
	GetOrder(ctx context.Context, id string) (models.Order, error)

	// UpdateOrder applies a partial field update to the order.
	UpdateOrder(ctx context.Context, id string, fields map[string]any) error

	// RecentOrdersByOwnerAndTotal returns the most recent orders for
	// one owner with an identical total, newest first.
	RecentOrdersByOwnerAndTotal(ctx context.Context, customerID string, totalMinor int64, limit int) ([]models.Order, error)
}

// InvoiceStore persists billing artifacts. CreateInvoice with an id
// that already exists is a no-op, preserving at-most-one-invoice.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv models.Invoice) error
	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
	AttachDelivery(ctx context.Context, id string, outcome models.DeliveryOutcome) error
}

const verifyPollInterval = 50 * time.Millisecond

// UpdateOrderVerified applies a partial update and reads it back until
// verify passes or the bound elapses, returning ErrVerificationFailed
// in the latter case. Used where a caller-visible guarantee depends on
// the status change actually being persisted.
func UpdateOrderVerified(ctx context.Context, s OrderStore, id string, fields map[string]any, verify func(models.Order) bool, bound time.Duration) error {
	if err := s.UpdateOrder(ctx, id, fields); err != nil {
		return err
	}

	deadline := time.Now().Add(bound)
	for {
		o, err := s.GetOrder(ctx, id)
		if err == nil && verify(o) {
			return nil
		}
		if err != nil && !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrNotFound) {
			return err
		}
		if time.Now().After(deadline) {
			return ErrVerificationFailed
		}
		select {
		case <-time.After(verifyPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
