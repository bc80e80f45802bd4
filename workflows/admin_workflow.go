package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"print-order-system/activities"
	"print-order-system/models"
)

// AdminOverrideRequest forces an order's axes to arbitrary states.
type AdminOverrideRequest struct {
	OrderID     string                   `json:"order_id"`
	Fulfillment models.FulfillmentStatus `json:"fulfillment"`
	Settlement  models.SettlementStatus  `json:"settlement,omitempty"`
	Actor       string                   `json:"actor"`
	Reason      string                   `json:"reason,omitempty"`
}

// AdminOverrideWorkflow applies an administrative transition that
// deliberately bypasses the reachability tables. Overrides are always
// attributed and logged; the regular checkout path never uses this.
func AdminOverrideWorkflow(ctx workflow.Context, req AdminOverrideRequest) (models.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Warn("Administrative override requested",
		"order_id", req.OrderID, "fulfillment", req.Fulfillment,
		"settlement", req.Settlement, "actor", req.Actor)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	var orderAct *activities.OrderActivities
	var order models.Order
	err := workflow.ExecuteActivity(ctx, orderAct.ForceTransition, activities.ForceTransitionRequest{
		OrderID:     req.OrderID,
		Fulfillment: req.Fulfillment,
		Settlement:  req.Settlement,
		Actor:       req.Actor,
		Reason:      req.Reason,
	}).Get(ctx, &order)
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}
