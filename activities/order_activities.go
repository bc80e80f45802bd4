package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"print-order-system/ident"
	"print-order-system/models"
	"print-order-system/store"
)

// Error types used to mark activity failures non-retryable.
const (
	ErrTypeValidation         = "ValidationError"
	ErrTypeNotFound           = "NotFound"
	ErrTypePermissionDenied   = "PermissionDenied"
	ErrTypeTransitionRejected = "TransitionRejected"
)

// defaultVerifyBound is how long a status write may take to become
// readable before the gateway reports verification failure.
const defaultVerifyBound = 2 * time.Second

// OrderActivities owns order record creation, duplicate suppression and
// status transitions.
type OrderActivities struct {
	orders      store.OrderStore
	guard       *store.DuplicateGuard
	verifyBound time.Duration
}

// NewOrderActivities creates a new OrderActivities instance.
func NewOrderActivities(orders store.OrderStore) *OrderActivities {
	return &OrderActivities{
		orders:      orders,
		guard:       store.NewDuplicateGuard(orders),
		verifyBound: defaultVerifyBound,
	}
}

// DuplicateCheckRequest asks whether a submission repeats a recent one.
type DuplicateCheckRequest struct {
	CustomerID string        `json:"customer_id"`
	TotalMinor int64         `json:"total_minor"`
	Window     time.Duration `json:"window"`
}

// CheckDuplicate looks for a recent identical-total order from the same
// owner. The guard fails open: a store error is logged and reported as
// "not duplicate" so checkout stays available.
func (a *OrderActivities) CheckDuplicate(ctx context.Context, req DuplicateCheckRequest) (store.DuplicateCheck, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Checking for duplicate order", "customer_id", req.CustomerID, "total_minor", req.TotalMinor)

	check, err := a.guard.Check(ctx, req.CustomerID, req.TotalMinor, req.Window)
	if err != nil {
		logger.Warn("Duplicate lookup failed, failing open", "customer_id", req.CustomerID, "error", err)
		return store.DuplicateCheck{}, nil
	}
	if check.Duplicate {
		logger.Info("Duplicate order suppressed", "customer_id", req.CustomerID, "existing_order_id", check.ExistingOrderID)
	}
	return check, nil
}

// CreateOrder persists a new order record for the draft and returns it
// with its store-assigned id and tracking code.
func (a *OrderActivities) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error) {
	logger := activity.GetLogger(ctx)

	if err := draft.Validate(); err != nil {
		return models.Order{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err)
	}

	order := models.NewOrder(draft, ident.TrackingCode(draft.CustomerID), time.Now().UTC())
	id, err := a.orders.CreateOrder(ctx, order)
	if err != nil {
		return models.Order{}, classifyStoreError(fmt.Errorf("create order: %w", err))
	}
	order.ID = id

	logger.Info("Order created", "order_id", id, "tracking_code", order.TrackingCode, "total_minor", order.TotalMinor)
	return order, nil
}

// GetOrder fetches one order record.
func (a *OrderActivities) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	order, err := a.orders.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, classifyStoreError(err)
	}
	return order, nil
}

// TransitionRequest moves an order along one or both status axes. Nil
// axes are left untouched.
type TransitionRequest struct {
	OrderID     string                    `json:"order_id"`
	Fulfillment *models.FulfillmentStatus `json:"fulfillment,omitempty"`
	Settlement  *models.SettlementStatus  `json:"settlement,omitempty"`
}

// Transition applies a legality-checked status change. Unreachable
// targets are rejected non-retryably; re-applying the current state is
// an idempotent no-op success. Progress is recomputed from the new
// fulfillment state, never set directly.
func (a *OrderActivities) Transition(ctx context.Context, req TransitionRequest) (models.Order, error) {
	logger := activity.GetLogger(ctx)

	order, err := a.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return models.Order{}, classifyStoreError(err)
	}

	fields := map[string]any{}

	if req.Fulfillment != nil {
		target := *req.Fulfillment
		if !models.ValidFulfillmentStatus(target) {
			return models.Order{}, rejectTransition("unknown fulfillment status %q", target)
		}
		if !models.CanTransitionFulfillment(order.Fulfillment, target) {
			return models.Order{}, rejectTransition("fulfillment %s -> %s is not reachable", order.Fulfillment, target)
		}
		if target != order.Fulfillment {
			fields[store.FieldFulfillment] = target
			fields[store.FieldProgress] = models.Progress(target)
			order.Fulfillment = target
			order.Progress = models.Progress(target)
		}
	}

	if req.Settlement != nil {
		target := *req.Settlement
		if !models.ValidSettlementStatus(target) {
			return models.Order{}, rejectTransition("unknown settlement status %q", target)
		}
		if !models.CanTransitionSettlement(order.Settlement, target) {
			return models.Order{}, rejectTransition("settlement %s -> %s is not reachable", order.Settlement, target)
		}
		if target != order.Settlement {
			fields[store.FieldSettlement] = target
			order.Settlement = target
		}
	}

	if len(fields) == 0 {
		logger.Info("Transition is a no-op, order already in target state", "order_id", order.ID)
		return order, nil
	}

	if err := a.updateVerified(ctx, order, fields); err != nil {
		return models.Order{}, err
	}

	logger.Info("Order transitioned",
		"order_id", order.ID, "fulfillment", order.Fulfillment,
		"settlement", order.Settlement, "progress", order.Progress)
	return order, nil
}

// RecordSettlementRequest folds a resolved settlement attempt into the
// order record.
type RecordSettlementRequest struct {
	OrderID string                   `json:"order_id"`
	Outcome models.SettlementOutcome `json:"outcome"`
}

// RecordSettlement writes the attempt's terminal outcome onto the
// order: settlement axis, payment references and the source tag that
// distinguishes gateway-confirmed results from synthesized fallbacks.
// Re-applying an already-recorded outcome is a no-op.
func (a *OrderActivities) RecordSettlement(ctx context.Context, req RecordSettlementRequest) (models.Order, error) {
	logger := activity.GetLogger(ctx)

	order, err := a.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return models.Order{}, classifyStoreError(err)
	}

	target := req.Outcome.SettlementStatus()
	if order.Settlement == target {
		logger.Info("Settlement already recorded", "order_id", order.ID, "settlement", target)
		return order, nil
	}
	if !models.CanTransitionSettlement(order.Settlement, target) {
		return models.Order{}, rejectTransition("settlement %s -> %s is not reachable", order.Settlement, target)
	}

	fields := map[string]any{
		store.FieldSettlement:    target,
		store.FieldSettlementSrc: req.Outcome.Source,
	}
	order.Settlement = target
	order.SettlementSrc = req.Outcome.Source

	// Empty refs never clobber earlier ones, in the store or in the
	// returned view.
	if req.Outcome.GatewayOrderRef != "" {
		fields[store.FieldGatewayOrderRef] = req.Outcome.GatewayOrderRef
		order.GatewayOrderRef = req.Outcome.GatewayOrderRef
	}
	if req.Outcome.PaymentRef != "" {
		fields[store.FieldPaymentRef] = req.Outcome.PaymentRef
		order.PaymentRef = req.Outcome.PaymentRef
	}

	if err := a.updateVerified(ctx, order, fields); err != nil {
		return models.Order{}, err
	}

	logger.Info("Settlement recorded",
		"order_id", order.ID, "settlement", target,
		"source", req.Outcome.Source, "payment_ref", req.Outcome.PaymentRef)
	return order, nil
}

// ForceTransitionRequest is the administrative override path: it sets
// the axes directly, bypassing the reachability tables.
type ForceTransitionRequest struct {
	OrderID     string                   `json:"order_id"`
	Fulfillment models.FulfillmentStatus `json:"fulfillment"`
	Settlement  models.SettlementStatus  `json:"settlement,omitempty"`
	Actor       string                   `json:"actor"`
	Reason      string                   `json:"reason,omitempty"`
}

// ForceTransition applies an administrative override. The bypass is
// deliberate and always logged with the acting admin; the normal
// Transition path remains the only legality-checked entry point.
func (a *OrderActivities) ForceTransition(ctx context.Context, req ForceTransitionRequest) (models.Order, error) {
	logger := activity.GetLogger(ctx)

	order, err := a.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return models.Order{}, classifyStoreError(err)
	}

	if !models.ValidFulfillmentStatus(req.Fulfillment) {
		return models.Order{}, rejectTransition("unknown fulfillment status %q", req.Fulfillment)
	}

	fields := map[string]any{
		store.FieldFulfillment: req.Fulfillment,
		store.FieldProgress:    models.Progress(req.Fulfillment),
	}
	order.Fulfillment = req.Fulfillment
	order.Progress = models.Progress(req.Fulfillment)

	if req.Settlement != "" {
		if !models.ValidSettlementStatus(req.Settlement) {
			return models.Order{}, rejectTransition("unknown settlement status %q", req.Settlement)
		}
		fields[store.FieldSettlement] = req.Settlement
		order.Settlement = req.Settlement
	}

	if err := a.updateVerified(ctx, order, fields); err != nil {
		return models.Order{}, err
	}

	logger.Warn("Administrative override applied, reachability checks bypassed",
		"order_id", order.ID, "actor", req.Actor, "reason", req.Reason,
		"fulfillment", order.Fulfillment, "settlement", order.Settlement)
	return order, nil
}

func (a *OrderActivities) updateVerified(ctx context.Context, want models.Order, fields map[string]any) error {
	err := store.UpdateOrderVerified(ctx, a.orders, want.ID, fields, func(o models.Order) bool {
		return o.Fulfillment == want.Fulfillment && o.Settlement == want.Settlement
	}, a.verifyBound)
	if err != nil {
		return classifyStoreError(fmt.Errorf("update order %s: %w", want.ID, err))
	}
	return nil
}

func rejectTransition(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return temporal.NewNonRetryableApplicationError(msg, ErrTypeTransitionRejected, nil)
}

// classifyStoreError marks the store failures that must never be
// retried as non-retryable; availability errors pass through for the
// retry policy and supervisor to absorb.
func classifyStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	case errors.Is(err, store.ErrPermissionDenied):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypePermissionDenied, err)
	}
	return err
}
