package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"print-order-system/activities"
	"print-order-system/models"
)

// InvoiceRequest triggers the invoice pipeline for one settled order.
type InvoiceRequest struct {
	OrderID string `json:"order_id"`
}

// InvoiceWorkflow produces and ships the billing artifact: derive the
// invoice id (idempotent), render with a placeholder fallback, persist,
// then deliver best-effort. It runs detached from the checkout session
// and never gates order completion; re-invocation on an order that
// already has an invoice id yields the same id with no duplicate
// record.
func InvoiceWorkflow(ctx workflow.Context, req InvoiceRequest) (models.Invoice, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("InvoiceWorkflow started", "order_id", req.OrderID)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		HeartbeatTimeout:    10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var invoiceAct *activities.InvoiceActivities

	var ensure activities.EnsureInvoiceResult
	if err := workflow.ExecuteActivity(ctx, invoiceAct.EnsureInvoiceID, req.OrderID).Get(ctx, &ensure); err != nil {
		return models.Invoice{}, fmt.Errorf("ensure invoice id: %w", err)
	}
	if ensure.Order.Settlement != models.SettlementSettled {
		return models.Invoice{}, fmt.Errorf("order %s is %s, invoicing requires a settled order",
			req.OrderID, ensure.Order.Settlement)
	}

	var render activities.RenderInvoiceResult
	err := workflow.ExecuteActivity(ctx, invoiceAct.RenderInvoice, activities.RenderInvoiceRequest{
		Order:     ensure.Order,
		InvoiceID: ensure.InvoiceID,
	}).Get(ctx, &render)
	if err != nil {
		// A renderer rejection means malformed invoice data; that is a
		// real failure, not one to paper over with a placeholder.
		return models.Invoice{}, fmt.Errorf("render invoice: %w", err)
	}

	var invoice models.Invoice
	err = workflow.ExecuteActivity(ctx, invoiceAct.PersistInvoice, activities.PersistInvoiceRequest{
		Order:     ensure.Order,
		InvoiceID: ensure.InvoiceID,
		Rendered:  render.Rendered,
	}).Get(ctx, &invoice)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("persist invoice: %w", err)
	}

	// Delivery is fire-and-forget: the outcome is advisory and a
	// failure never fails the pipeline.
	var outcome models.DeliveryOutcome
	err = workflow.ExecuteActivity(ctx, invoiceAct.DeliverInvoice, activities.DeliverInvoiceRequest{
		Invoice: invoice,
		Email:   ensure.Order.CustomerEmail,
	}).Get(ctx, &outcome)
	if err != nil {
		logger.Warn("Invoice delivery activity failed", "invoice_id", invoice.ID, "error", err)
	} else {
		invoice.Delivery = &outcome
		if !outcome.Sent {
			logger.Warn("Invoice delivery unsuccessful", "invoice_id", invoice.ID, "detail", outcome.Detail)
		}
	}

	logger.Info("InvoiceWorkflow completed",
		"order_id", req.OrderID, "invoice_id", invoice.ID, "placeholder", invoice.Placeholder)
	return invoice, nil
}
