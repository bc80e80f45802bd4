package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"print-order-system/models"
	"print-order-system/paymentgw"
)

// PaymentActivities owns the gateway-side half of a settlement attempt.
// The widget callback itself never passes through an activity; it
// reaches the payment workflow as a signal.
type PaymentActivities struct {
	gateway *paymentgw.Client
}

// NewPaymentActivities creates a new PaymentActivities instance.
func NewPaymentActivities(gateway *paymentgw.Client) *PaymentActivities {
	return &PaymentActivities{gateway: gateway}
}

// CreateGatewayOrder registers the attempt with the payment gateway and
// returns the reference the checkout widget is opened with.
func (p *PaymentActivities) CreateGatewayOrder(ctx context.Context, order models.Order) (paymentgw.GatewayOrder, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating gateway order", "order_id", order.ID, "amount_minor", order.TotalMinor, "currency", order.Currency)

	if order.TotalMinor <= 0 {
		return paymentgw.GatewayOrder{}, fmt.Errorf("invalid payment amount: %d", order.TotalMinor)
	}

	activity.RecordHeartbeat(ctx, "calling payment gateway")

	gw, err := p.gateway.CreateGatewayOrder(ctx, paymentgw.GatewayOrderRequest{
		AmountMinor: order.TotalMinor,
		Currency:    order.Currency,
		Receipt:     order.TrackingCode,
		PayerName:   order.CustomerName,
		PayerEmail:  order.CustomerEmail,
		Notes: map[string]string{
			"order_id": order.ID,
		},
	})
	if err != nil {
		return paymentgw.GatewayOrder{}, fmt.Errorf("gateway order for %s: %w", order.ID, err)
	}

	logger.Info("Gateway order created", "order_id", order.ID, "gateway_order_ref", gw.Reference)
	return gw, nil
}
