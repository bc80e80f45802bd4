package models

import "time"

// AttemptStatus is the per-attempt payment state machine exposed to
// queries while the checkout surface is open.
type AttemptStatus string

const (
	AttemptInitiated          AttemptStatus = "INITIATED"
	AttemptAwaitingUserAction AttemptStatus = "AWAITING_USER_ACTION"
	AttemptSettled            AttemptStatus = "SETTLED"
	AttemptDeclined           AttemptStatus = "DECLINED"
	AttemptCancelled          AttemptStatus = "CANCELLED"
	AttemptTimedOut           AttemptStatus = "TIMED_OUT"
)

// OutcomeState is the terminal result of a settlement attempt.
type OutcomeState string

const (
	OutcomeSettled   OutcomeState = "SETTLED"
	OutcomeDeclined  OutcomeState = "DECLINED"
	OutcomeCancelled OutcomeState = "CANCELLED"
	OutcomeTimedOut  OutcomeState = "TIMED_OUT"
)

// OutcomeSource distinguishes a gateway-confirmed result from one the
// pipeline synthesized when the gateway missed its deadline. Invoicing
// and revenue reporting depend on this tag.
type OutcomeSource string

const (
	SourceGatewayConfirmed OutcomeSource = "GATEWAY_CONFIRMED"
	SourceFallback         OutcomeSource = "FALLBACK"
)

// Terminal reports whether the attempt has resolved.
func (s AttemptStatus) Terminal() bool {
	switch s {
	case AttemptSettled, AttemptDeclined, AttemptCancelled, AttemptTimedOut:
		return true
	}
	return false
}

// SettlementAttempt is the ephemeral state of one payment-capture
// attempt. It is never persisted standalone; once resolved it is folded
// into the order record.
type SettlementAttempt struct {
	OrderID         string        `json:"order_id"`
	GatewayOrderRef string        `json:"gateway_order_ref"`
	AmountMinor     int64         `json:"amount_minor"`
	Currency        string        `json:"currency"`
	Status          AttemptStatus `json:"status"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// SettlementOutcome is the single terminal result of a settlement
// attempt, tagged with how it was obtained.
type SettlementOutcome struct {
	State           OutcomeState  `json:"state"`
	Source          OutcomeSource `json:"source"`
	GatewayOrderRef string        `json:"gateway_order_ref,omitempty"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	ResolvedAt      time.Time     `json:"resolved_at"`
}

// SettlementStatus maps the outcome onto the order's settlement axis.
// Only a settled outcome captures payment; declines, dismissals and
// pessimistic timeouts all settle the order as failed.
func (o SettlementOutcome) SettlementStatus() SettlementStatus {
	if o.State == OutcomeSettled {
		return SettlementSettled
	}
	return SettlementFailed
}
