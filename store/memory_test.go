package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"print-order-system/models"
)

func testOrder(customerID string, totalMinor int64, createdAt time.Time) models.Order {
	return models.Order{
		TrackingCode: "PO-TEST-ABC234",
		CustomerID:   customerID,
		Product:      "sticker",
		Quantity:     500,
		TotalMinor:   totalMinor,
		Currency:     "INR",
		Settlement:   models.SettlementUnsettled,
		Fulfillment:  models.FulfillmentPlaced,
		Progress:     models.Progress(models.FulfillmentPlaced),
		Origin:       models.OriginStore,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestMemoryCreateThenGet(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	id, err := mem.CreateOrder(ctx, testOrder("cust-1", 1500, time.Now()))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := mem.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementUnsettled, got.Settlement)
	assert.Equal(t, models.FulfillmentPlaced, got.Fulfillment)
	assert.Equal(t, 20, got.Progress)
}

func TestMemoryGetNotFound(t *testing.T) {
	mem := NewMemory()
	_, err := mem.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateOrder(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	id, err := mem.CreateOrder(ctx, testOrder("cust-1", 1500, time.Now()))
	require.NoError(t, err)
	before, err := mem.GetOrder(ctx, id)
	require.NoError(t, err)

	err = mem.UpdateOrder(ctx, id, map[string]any{
		FieldSettlement:    models.SettlementSettled,
		FieldFulfillment:   models.FulfillmentAcknowledged,
		FieldProgress:      models.Progress(models.FulfillmentAcknowledged),
		FieldPaymentRef:    "pay_123",
		FieldSettlementSrc: models.SourceGatewayConfirmed,
	})
	require.NoError(t, err)

	got, err := mem.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementSettled, got.Settlement)
	assert.Equal(t, models.FulfillmentAcknowledged, got.Fulfillment)
	assert.Equal(t, "pay_123", got.PaymentRef)
	assert.Equal(t, models.SourceGatewayConfirmed, got.SettlementSrc)
	assert.True(t, got.UpdatedAt.After(before.UpdatedAt) || got.UpdatedAt.Equal(before.UpdatedAt),
		"writes advance the last-updated marker")

	err = mem.UpdateOrder(ctx, id, map[string]any{"bogus": 1})
	assert.Error(t, err)

	err = mem.UpdateOrder(ctx, "missing", map[string]any{FieldPaymentRef: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRecentOrdersByOwnerAndTotal(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Now()

	oldest := testOrder("cust-1", 1500, now.Add(-10*time.Minute))
	middle := testOrder("cust-1", 1500, now.Add(-5*time.Minute))
	newest := testOrder("cust-1", 1500, now.Add(-1*time.Minute))
	otherOwner := testOrder("cust-2", 1500, now)
	otherTotal := testOrder("cust-1", 9999, now)

	for _, o := range []models.Order{oldest, middle, newest, otherOwner, otherTotal} {
		_, err := mem.CreateOrder(ctx, o)
		require.NoError(t, err)
	}

	recent, err := mem.RecentOrdersByOwnerAndTotal(ctx, "cust-1", 1500, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newest.CreatedAt.Unix(), recent[0].CreatedAt.Unix(), "newest first")
	assert.Equal(t, middle.CreatedAt.Unix(), recent[1].CreatedAt.Unix())
}

func TestUpdateOrderVerified(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	id, err := mem.CreateOrder(ctx, testOrder("cust-1", 1500, time.Now()))
	require.NoError(t, err)

	err = UpdateOrderVerified(ctx, mem, id,
		map[string]any{FieldSettlement: models.SettlementSettled},
		func(o models.Order) bool { return o.Settlement == models.SettlementSettled },
		time.Second)
	assert.NoError(t, err)

	// A predicate that can never pass reports verification failure
	// within the bound.
	err = UpdateOrderVerified(ctx, mem, id,
		map[string]any{FieldPaymentRef: "pay_123"},
		func(o models.Order) bool { return false },
		150*time.Millisecond)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestMemoryInvoiceIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	inv := models.Invoice{ID: "INV-1", OrderID: "ord-1", DocumentRef: "documents/INV-1.pdf"}
	require.NoError(t, mem.CreateInvoice(ctx, inv))

	// Re-creating the same id leaves the original untouched.
	dup := inv
	dup.DocumentRef = "documents/other.pdf"
	require.NoError(t, mem.CreateInvoice(ctx, dup))

	got, err := mem.GetInvoice(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "documents/INV-1.pdf", got.DocumentRef)
	assert.Equal(t, 1, mem.InvoiceCount())
}

func TestMemoryAttachDelivery(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	require.NoError(t, mem.CreateInvoice(ctx, models.Invoice{ID: "INV-1"}))

	outcome := models.DeliveryOutcome{Sent: true, At: time.Now()}
	require.NoError(t, mem.AttachDelivery(ctx, "INV-1", outcome))

	got, err := mem.GetInvoice(ctx, "INV-1")
	require.NoError(t, err)
	require.NotNil(t, got.Delivery)
	assert.True(t, got.Delivery.Sent)

	assert.ErrorIs(t, mem.AttachDelivery(ctx, "missing", outcome), ErrNotFound)
}
