package workflows

import (
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"print-order-system/activities"
	"print-order-system/ident"
	"print-order-system/models"
	"print-order-system/store"
	"print-order-system/supervisor"
)

// CheckoutRequest starts one checkout session.
type CheckoutRequest struct {
	Draft  models.OrderDraft `json:"draft"`
	Policy Policy            `json:"policy"`
}

// CheckoutResult is the session's terminal state. The flow always
// reaches one within the sum of the configured deadlines.
type CheckoutResult struct {
	OrderID      string                   `json:"order_id"`
	TrackingCode string                   `json:"tracking_code"`
	Duplicate    bool                     `json:"duplicate"`
	Settlement   models.SettlementStatus  `json:"settlement"`
	Fulfillment  models.FulfillmentStatus `json:"fulfillment"`
	Outcome      models.SettlementOutcome `json:"outcome"`
	OrderOrigin  models.RecordOrigin      `json:"order_origin"`
	Degraded     bool                     `json:"degraded"`
	Fallbacks    int                      `json:"fallbacks"`
	InvoiceBegun bool                     `json:"invoice_begun"`
}

// CheckoutState is the queryable view of a running session.
type CheckoutState struct {
	Stage       string              `json:"stage"`
	OrderID     string              `json:"order_id,omitempty"`
	OrderOrigin models.RecordOrigin `json:"order_origin,omitempty"`
	Degraded    bool                `json:"degraded"`
	LastUpdated time.Time           `json:"last_updated"`
}

// CheckoutWorkflow is the order-to-cash pipeline for one checkout
// session: duplicate-guarded order creation, payment-capture
// orchestration, settlement and fulfillment recording, and the
// detached best-effort invoice pipeline. External unreliability is
// absorbed into degraded-but-terminal continuations; the session never
// awaits anything indefinitely.
func CheckoutWorkflow(ctx workflow.Context, req CheckoutRequest) (CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	policy := req.Policy.withDefaults()

	// Validation rejects before any external call.
	if err := req.Draft.Validate(); err != nil {
		return CheckoutResult{}, err
	}

	state := CheckoutState{Stage: "created", LastUpdated: workflow.Now(ctx)}
	err := workflow.SetQueryHandler(ctx, QueryCheckoutState, func() (CheckoutState, error) {
		return state, nil
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("failed to set query handler: %w", err)
	}

	logger.Info("CheckoutWorkflow started",
		"customer_id", req.Draft.CustomerID, "product", req.Draft.Product, "total_minor", req.Draft.TotalMinor())

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	sup := supervisor.New(policy.FallbackThreshold)
	var orderAct *activities.OrderActivities

	// Duplicate suppression. The guard fails open inside the activity;
	// an activity-level failure here fails open too.
	var check store.DuplicateCheck
	dupErr := workflow.ExecuteActivity(ctx, orderAct.CheckDuplicate, activities.DuplicateCheckRequest{
		CustomerID: req.Draft.CustomerID,
		TotalMinor: req.Draft.TotalMinor(),
		Window:     policy.DuplicateWindow,
	}).Get(ctx, &check)
	if dupErr != nil {
		logger.Warn("Duplicate check unavailable, failing open", "error", dupErr)
	}
	if check.Duplicate {
		logger.Info("Submission is a duplicate, suppressing", "existing_order_id", check.ExistingOrderID)
		return CheckoutResult{
			OrderID:   check.ExistingOrderID,
			Duplicate: true,
		}, nil
	}

	// Create the durable order record, racing the store against its
	// deadline. A miss degrades to a locally synthesized identity
	// tagged for reconciliation.
	state.Stage = "creating_order"
	state.LastUpdated = workflow.Now(ctx)

	var order models.Order
	createFut := workflow.ExecuteActivity(ctx, orderAct.CreateOrder, req.Draft)
	switch sup.Await(ctx, "order-store.create", createFut, policy.StoreDeadline) {
	case supervisor.Confirmed:
		if err := createFut.Get(ctx, &order); err != nil {
			if fatalErrorType(err) != "" {
				return CheckoutResult{}, err
			}
			logger.Warn("Order creation failed, continuing on fallback record", "error", err)
			order, err = fallbackOrder(ctx, req.Draft)
			if err != nil {
				return CheckoutResult{}, err
			}
		}
	case supervisor.Fallback:
		order, err = fallbackOrder(ctx, req.Draft)
		if err != nil {
			return CheckoutResult{}, err
		}
	}

	state.Stage = "awaiting_payment"
	state.OrderID = order.ID
	state.OrderOrigin = order.Origin
	state.Degraded = sup.Degraded()
	state.LastUpdated = workflow.Now(ctx)

	// Payment capture as a child workflow with its own deadline. The
	// child always resolves; a child-level failure degrades to a
	// synthesized timeout outcome.
	// The child id derives from the session id so the callback webhook
	// can address the attempt without knowing the store-assigned order
	// id.
	childOptions := workflow.ChildWorkflowOptions{
		WorkflowID:               fmt.Sprintf("%s-payment", workflow.GetInfo(ctx).WorkflowExecution.ID),
		WorkflowExecutionTimeout: policy.PaymentDeadline + 2*time.Minute,
	}
	childCtx := workflow.WithChildOptions(ctx, childOptions)

	var outcome models.SettlementOutcome
	err = workflow.ExecuteChildWorkflow(childCtx, PaymentWorkflow, PaymentRequest{
		Order:             order,
		Deadline:          policy.PaymentDeadline,
		OptimisticCapture: policy.OptimisticCapture,
	}).Get(ctx, &outcome)
	if err != nil {
		logger.Error("Payment workflow failed, degrading to synthesized outcome", "order_id", order.ID, "error", err)
		outcome = models.SettlementOutcome{
			State:      models.OutcomeTimedOut,
			Source:     models.SourceFallback,
			Reason:     fmt.Sprintf("payment workflow failed: %v", err),
			ResolvedAt: workflow.Now(ctx),
		}
	}

	// Fold the terminal outcome into the order record. Recording is
	// itself supervised; a miss leaves the durable record behind the
	// session's view, flagged for reconciliation, never blocks.
	state.Stage = "recording_settlement"
	state.LastUpdated = workflow.Now(ctx)

	order.Settlement = outcome.SettlementStatus()
	order.SettlementSrc = outcome.Source
	order.PaymentRef = outcome.PaymentRef
	if outcome.GatewayOrderRef != "" {
		order.GatewayOrderRef = outcome.GatewayOrderRef
	}

	if order.Origin == models.OriginStore && !sup.Degraded() {
		recordFut := workflow.ExecuteActivity(ctx, orderAct.RecordSettlement, activities.RecordSettlementRequest{
			OrderID: order.ID,
			Outcome: outcome,
		})
		if sup.Await(ctx, "order-store.record-settlement", recordFut, policy.StoreDeadline) == supervisor.Confirmed {
			var recorded models.Order
			if err := recordFut.Get(ctx, &recorded); err != nil {
				logger.Error("Settlement not durably recorded, needs reconciliation", "order_id", order.ID, "error", err)
			} else {
				order = recorded
			}
		}
	} else {
		logger.Warn("Skipping settlement write, session degraded", "order_id", order.ID, "origin", order.Origin)
	}

	result := CheckoutResult{
		OrderID:      order.ID,
		TrackingCode: order.TrackingCode,
		Settlement:   order.Settlement,
		Fulfillment:  order.Fulfillment,
		Outcome:      outcome,
		OrderOrigin:  order.Origin,
	}

	if order.Settlement == models.SettlementSettled {
		// Acknowledge the print job and detach the invoice pipeline.
		state.Stage = "advancing_fulfillment"
		state.LastUpdated = workflow.Now(ctx)

		ack := models.FulfillmentAcknowledged
		if order.Origin == models.OriginStore && !sup.Degraded() {
			ackFut := workflow.ExecuteActivity(ctx, orderAct.Transition, activities.TransitionRequest{
				OrderID:     order.ID,
				Fulfillment: &ack,
			})
			if sup.Await(ctx, "order-store.acknowledge", ackFut, policy.StoreDeadline) == supervisor.Confirmed {
				var advanced models.Order
				if err := ackFut.Get(ctx, &advanced); err != nil {
					logger.Error("Fulfillment advance not recorded, needs reconciliation", "order_id", order.ID, "error", err)
				} else {
					order = advanced
				}
			}
			result.InvoiceBegun = startInvoice(ctx, order, logger)
		} else {
			// A fallback order has no durable record to invoice
			// against; reconciliation recreates it and triggers the
			// pipeline then.
			logger.Warn("Invoice pipeline deferred to reconciliation", "order_id", order.ID, "origin", order.Origin)
		}
		result.Fulfillment = order.Fulfillment
	}

	result.Degraded = sup.Degraded()
	result.Fallbacks = sup.Fallbacks()

	state.Stage = "completed"
	state.Degraded = sup.Degraded()
	state.LastUpdated = workflow.Now(ctx)

	logger.Info("CheckoutWorkflow completed",
		"order_id", order.ID, "settlement", result.Settlement,
		"outcome_source", outcome.Source, "degraded", result.Degraded)
	return result, nil
}

// startInvoice launches the invoice pipeline as an abandoned child: the
// session waits only for the child to begin, never for the invoice.
// Failure to even start is logged, not fatal.
func startInvoice(ctx workflow.Context, order models.Order, logger log.Logger) bool {
	invoiceCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:        fmt.Sprintf("invoice-%s", order.ID),
		ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_ABANDON,
	})
	fut := workflow.ExecuteChildWorkflow(invoiceCtx, InvoiceWorkflow, InvoiceRequest{OrderID: order.ID})
	if err := fut.GetChildWorkflowExecution().Get(ctx, nil); err != nil {
		logger.Warn("Invoice pipeline failed to start", "order_id", order.ID, "error", err)
		return false
	}
	return true
}

// fallbackOrder synthesizes the degraded order record used when the
// store misses its deadline.
func fallbackOrder(ctx workflow.Context, draft models.OrderDraft) (models.Order, error) {
	var ids struct {
		OrderID      string
		TrackingCode string
	}
	err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return struct {
			OrderID      string
			TrackingCode string
		}{
			OrderID:      ident.FallbackOrderID(),
			TrackingCode: ident.TrackingCode(draft.CustomerID),
		}
	}).Get(&ids)
	if err != nil {
		return models.Order{}, fmt.Errorf("fallback order identity: %w", err)
	}

	order := models.NewOrder(draft, ids.TrackingCode, workflow.Now(ctx))
	order.ID = ids.OrderID
	order.Origin = models.OriginFallback
	return order, nil
}

// fatalErrorType extracts the non-retryable application error type, if
// any, that must halt the flow instead of degrading it.
func fatalErrorType(err error) string {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return ""
	}
	switch appErr.Type() {
	case activities.ErrTypeValidation, activities.ErrTypePermissionDenied:
		return appErr.Type()
	}
	return ""
}
