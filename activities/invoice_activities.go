package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"golang.org/x/sync/errgroup"

	"print-order-system/billing"
	"print-order-system/ident"
	"print-order-system/models"
	"print-order-system/store"
)

// defaultRenderBound is how long the document renderer gets before the
// pipeline substitutes a placeholder document.
const defaultRenderBound = 10 * time.Second

// InvoiceActivities owns the billing artifact pipeline: id derivation,
// rendering, persistence and best-effort delivery.
type InvoiceActivities struct {
	orders      store.OrderStore
	invoices    store.InvoiceStore
	renderer    *billing.Renderer
	dispatcher  *billing.Dispatcher
	seller      billing.Seller
	renderBound time.Duration
	verifyBound time.Duration
}

// NewInvoiceActivities creates a new InvoiceActivities instance.
func NewInvoiceActivities(orders store.OrderStore, invoices store.InvoiceStore, renderer *billing.Renderer, dispatcher *billing.Dispatcher, seller billing.Seller) *InvoiceActivities {
	return &InvoiceActivities{
		orders:      orders,
		invoices:    invoices,
		renderer:    renderer,
		dispatcher:  dispatcher,
		seller:      seller,
		renderBound: defaultRenderBound,
		verifyBound: defaultVerifyBound,
	}
}

// EnsureInvoiceResult carries the derived id together with the order so
// the workflow needs no second fetch.
type EnsureInvoiceResult struct {
	InvoiceID string       `json:"invoice_id"`
	Order     models.Order `json:"order"`
}

// EnsureInvoiceID derives the order's invoice id from its tracking code
// and creation time. The derivation is deterministic, so re-invocation
// on the same order yields the same id; an id already attached to the
// order is simply reused.
func (i *InvoiceActivities) EnsureInvoiceID(ctx context.Context, orderID string) (EnsureInvoiceResult, error) {
	logger := activity.GetLogger(ctx)

	order, err := i.orders.GetOrder(ctx, orderID)
	if err != nil {
		return EnsureInvoiceResult{}, classifyStoreError(err)
	}

	if order.InvoiceID != "" {
		logger.Info("Order already has an invoice id", "order_id", orderID, "invoice_id", order.InvoiceID)
		return EnsureInvoiceResult{InvoiceID: order.InvoiceID, Order: order}, nil
	}

	id := ident.InvoiceID(order.TrackingCode, order.CreatedAt)
	logger.Info("Invoice id derived", "order_id", orderID, "invoice_id", id)
	return EnsureInvoiceResult{InvoiceID: id, Order: order}, nil
}

// RenderInvoiceRequest asks for the billing document of one order.
type RenderInvoiceRequest struct {
	Order     models.Order `json:"order"`
	InvoiceID string       `json:"invoice_id"`
}

// RenderInvoiceResult is the rendered document plus the structured data
// it was built from.
type RenderInvoiceResult struct {
	Rendered billing.Rendered       `json:"rendered"`
	Document models.InvoiceDocument `json:"document"`
}

// RenderInvoice builds the invoice document and renders it within a
// bounded wait. A renderer that misses the bound yields a locally
// synthesized placeholder, flagged as such; a renderer that rejects the
// input fails the activity, since malformed invoices must not be
// silently ignored.
func (i *InvoiceActivities) RenderInvoice(ctx context.Context, req RenderInvoiceRequest) (RenderInvoiceResult, error) {
	logger := activity.GetLogger(ctx)

	doc := billing.BuildDocument(req.Order, req.InvoiceID, i.seller, time.Now().UTC())

	activity.RecordHeartbeat(ctx, "calling document renderer")

	renderCtx, cancel := context.WithTimeout(ctx, i.renderBound)
	defer cancel()

	rendered, err := i.renderer.Render(renderCtx, doc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || renderCtx.Err() != nil {
			logger.Warn("Renderer missed its deadline, substituting placeholder document",
				"invoice_id", req.InvoiceID, "bound", i.renderBound, "error", err)
			doc.Placeholder = true
			return RenderInvoiceResult{Rendered: billing.Placeholder(doc), Document: doc}, nil
		}
		return RenderInvoiceResult{}, fmt.Errorf("render invoice %s: %w", req.InvoiceID, err)
	}

	logger.Info("Invoice rendered", "invoice_id", req.InvoiceID, "document_ref", rendered.DocumentRef)
	return RenderInvoiceResult{Rendered: rendered, Document: doc}, nil
}

// PersistInvoiceRequest stores the billing artifact and links it to the
// order.
type PersistInvoiceRequest struct {
	Order     models.Order     `json:"order"`
	InvoiceID string           `json:"invoice_id"`
	Rendered  billing.Rendered `json:"rendered"`
}

// PersistInvoice writes the invoice record and attaches the id to the
// order. The two writes are independent and run concurrently; the order
// attach is verified so "every settled order has exactly one invoice
// id" actually holds in the store. Creating an invoice id that already
// exists is a no-op.
func (i *InvoiceActivities) PersistInvoice(ctx context.Context, req PersistInvoiceRequest) (models.Invoice, error) {
	logger := activity.GetLogger(ctx)

	inv := models.Invoice{
		ID:           req.InvoiceID,
		OrderID:      req.Order.ID,
		TrackingCode: req.Order.TrackingCode,
		DocumentRef:  req.Rendered.DocumentRef,
		Placeholder:  req.Rendered.Placeholder,
		CreatedAt:    time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := i.invoices.CreateInvoice(gctx, inv); err != nil {
			return fmt.Errorf("persist invoice %s: %w", inv.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		err := store.UpdateOrderVerified(gctx, i.orders, req.Order.ID,
			map[string]any{store.FieldInvoiceID: req.InvoiceID},
			func(o models.Order) bool { return o.InvoiceID == req.InvoiceID },
			i.verifyBound)
		if err != nil {
			return fmt.Errorf("attach invoice %s to order %s: %w", req.InvoiceID, req.Order.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Invoice{}, classifyStoreError(err)
	}

	logger.Info("Invoice persisted", "invoice_id", inv.ID, "order_id", inv.OrderID, "placeholder", inv.Placeholder)
	return inv, nil
}

// DeliverInvoiceRequest ships the invoice to the customer.
type DeliverInvoiceRequest struct {
	Invoice models.Invoice `json:"invoice"`
	Email   string         `json:"email"`
}

// DeliverInvoice sends the invoice message and records the advisory
// outcome on the invoice record. Dispatch failure is logged and folded
// into the outcome; it never fails the activity.
func (i *InvoiceActivities) DeliverInvoice(ctx context.Context, req DeliverInvoiceRequest) (models.DeliveryOutcome, error) {
	logger := activity.GetLogger(ctx)

	outcome := models.DeliveryOutcome{Sent: true, At: time.Now().UTC()}
	err := i.dispatcher.Send(ctx, billing.Message{
		To:            req.Email,
		Subject:       fmt.Sprintf("Invoice %s for order %s", req.Invoice.ID, req.Invoice.TrackingCode),
		Template:      "invoice-delivery",
		TrackingCode:  req.Invoice.TrackingCode,
		InvoiceID:     req.Invoice.ID,
		AttachmentRef: req.Invoice.DocumentRef,
	})
	if err != nil {
		logger.Warn("Invoice delivery failed, outcome is advisory only", "invoice_id", req.Invoice.ID, "error", err)
		outcome = models.DeliveryOutcome{Sent: false, Detail: err.Error(), At: time.Now().UTC()}
	}

	if err := i.invoices.AttachDelivery(ctx, req.Invoice.ID, outcome); err != nil {
		logger.Warn("Failed to record delivery outcome", "invoice_id", req.Invoice.ID, "error", err)
	}
	return outcome, nil
}
