package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"print-order-system/activities"
	"print-order-system/ident"
	"print-order-system/models"
	"print-order-system/paymentgw"
)

// PaymentRequest starts one settlement attempt for an order.
type PaymentRequest struct {
	Order             models.Order  `json:"order"`
	Deadline          time.Duration `json:"deadline"`
	OptimisticCapture bool          `json:"optimistic_capture"`
}

// PaymentWorkflow drives one settlement attempt through its state
// machine: Initiated, AwaitingUserAction, then exactly one terminal
// outcome. The widget callback is raced against the deadline; if the
// deadline elapses the workflow still resolves, synthesizing a terminal
// outcome tagged as a fallback rather than gateway-confirmed. A
// gateway-confirmed callback that arrives in the same instant the timer
// fires is authoritative and wins.
func PaymentWorkflow(ctx workflow.Context, req PaymentRequest) (models.SettlementOutcome, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PaymentWorkflow started",
		"order_id", req.Order.ID, "amount_minor", req.Order.TotalMinor, "deadline", req.Deadline)

	attempt := models.SettlementAttempt{
		OrderID:     req.Order.ID,
		AmountMinor: req.Order.TotalMinor,
		Currency:    req.Order.Currency,
		Status:      models.AttemptInitiated,
		StartedAt:   workflow.Now(ctx),
		UpdatedAt:   workflow.Now(ctx),
	}
	err := workflow.SetQueryHandler(ctx, QueryPaymentAttempt, func() (models.SettlementAttempt, error) {
		return attempt, nil
	})
	if err != nil {
		return models.SettlementOutcome{}, fmt.Errorf("failed to set query handler: %w", err)
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		HeartbeatTimeout:    5 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var paymentAct *activities.PaymentActivities

	// Obtain the gateway-side payment reference. If the gateway is
	// unreachable the attempt continues on a locally synthesized
	// reference so the flow still reaches a terminal state.
	var gw paymentgw.GatewayOrder
	refSource := models.SourceGatewayConfirmed
	if err := workflow.ExecuteActivity(ctx, paymentAct.CreateGatewayOrder, req.Order).Get(ctx, &gw); err != nil {
		logger.Warn("Gateway order creation failed, continuing on fallback reference",
			"order_id", req.Order.ID, "error", err)
		if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
			return ident.FallbackGatewayRef()
		}).Get(&gw.Reference); err != nil {
			return models.SettlementOutcome{}, fmt.Errorf("fallback gateway reference: %w", err)
		}
		refSource = models.SourceFallback
	}

	attempt.GatewayOrderRef = gw.Reference
	attempt.Status = models.AttemptAwaitingUserAction
	attempt.UpdatedAt = workflow.Now(ctx)
	logger.Info("Awaiting checkout widget callback",
		"order_id", req.Order.ID, "gateway_order_ref", gw.Reference, "ref_source", refSource)

	// Two-branch selection: the widget's callback against the deadline.
	callbackCh := workflow.GetSignalChannel(ctx, SignalPaymentCallback)
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	timer := workflow.NewTimer(timerCtx, req.Deadline)

	var cb paymentgw.Callback
	gotCallback := false
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(callbackCh, func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, &cb)
		gotCallback = true
	})
	selector.AddFuture(timer, func(workflow.Future) {})
	selector.Select(ctx)

	if gotCallback {
		cancelTimer()
	} else if callbackCh.ReceiveAsync(&cb) {
		// The callback landed in the same instant the timer fired;
		// the gateway-confirmed result overrides the synthesized one.
		gotCallback = true
	}

	now := workflow.Now(ctx)
	attempt.UpdatedAt = now

	if !gotCallback {
		attempt.Status = models.AttemptTimedOut
		outcome := models.SettlementOutcome{
			State:           models.OutcomeTimedOut,
			Source:          models.SourceFallback,
			GatewayOrderRef: gw.Reference,
			Reason:          "widget callback deadline elapsed",
			ResolvedAt:      now,
		}
		if req.OptimisticCapture {
			attempt.Status = models.AttemptSettled
			outcome.State = models.OutcomeSettled
			outcome.Reason = "widget callback deadline elapsed, optimistic capture assumed"
		}
		logger.Warn("Settlement attempt resolved by deadline",
			"order_id", req.Order.ID, "state", outcome.State, "source", outcome.Source)
		return outcome, nil
	}

	outcome := models.SettlementOutcome{
		Source:          models.SourceGatewayConfirmed,
		GatewayOrderRef: gw.Reference,
		PaymentRef:      cb.PaymentRef,
		Reason:          cb.Reason,
		ResolvedAt:      now,
	}
	switch cb.Event {
	case paymentgw.CallbackSuccess:
		attempt.Status = models.AttemptSettled
		attempt.PaymentRef = cb.PaymentRef
		outcome.State = models.OutcomeSettled
	case paymentgw.CallbackDismissed:
		attempt.Status = models.AttemptCancelled
		outcome.State = models.OutcomeCancelled
	default:
		// Failures and anything unrecognized are authoritative
		// declines, terminal and non-retryable within this attempt.
		attempt.Status = models.AttemptDeclined
		outcome.State = models.OutcomeDeclined
		if cb.Event != paymentgw.CallbackFailure {
			outcome.Reason = fmt.Sprintf("unrecognized callback event %q", cb.Event)
		}
	}

	logger.Info("Settlement attempt resolved by gateway callback",
		"order_id", req.Order.ID, "state", outcome.State, "payment_ref", cb.PaymentRef)
	return outcome, nil
}
