package workflows

import "time"

const (
	// SignalPaymentCallback delivers the checkout widget's single
	// emission (success, failure or user-dismissed) to the payment
	// workflow. It may never arrive.
	SignalPaymentCallback = "payment-callback"

	// QueryCheckoutState exposes the checkout session's state.
	QueryCheckoutState = "checkout-state"

	// QueryPaymentAttempt exposes the live settlement attempt.
	QueryPaymentAttempt = "payment-attempt"
)

// Policy is the per-session deadline and degradation configuration. A
// zero value gets the defaults below, so starters only set what they
// care about.
type Policy struct {
	// PaymentDeadline bounds the wait for the widget callback.
	PaymentDeadline time.Duration `json:"payment_deadline"`

	// StoreDeadline bounds each supervised wait on the order store.
	StoreDeadline time.Duration `json:"store_deadline"`

	// DuplicateWindow is how far back the duplicate guard looks.
	DuplicateWindow time.Duration `json:"duplicate_window"`

	// FallbackThreshold is how many fallback activations switch the
	// session to degraded mode.
	FallbackThreshold int `json:"fallback_threshold"`

	// OptimisticCapture controls the timeout-synthesized settlement
	// outcome: pessimistic (default) resolves the attempt as timed out
	// and the order settles failed; optimistic assumes the capture
	// succeeded, still tagged as a fallback result.
	OptimisticCapture bool `json:"optimistic_capture"`
}

func (p Policy) withDefaults() Policy {
	if p.PaymentDeadline == 0 {
		p.PaymentDeadline = 5 * time.Minute
	}
	if p.StoreDeadline == 0 {
		p.StoreDeadline = 15 * time.Second
	}
	if p.DuplicateWindow == 0 {
		p.DuplicateWindow = 5 * time.Minute
	}
	if p.FallbackThreshold == 0 {
		p.FallbackThreshold = 2
	}
	return p
}
