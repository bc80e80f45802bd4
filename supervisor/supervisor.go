// Package supervisor applies the pipeline's bounded-wait policy to
// external calls made from workflow code: every await is a two-branch
// selection over the collaborator's future and a deadline timer, and a
// deadline elapse yields a distinctly tagged fallback so reconciliation
// can later find and repair degraded records.
package supervisor

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// Result tags how an awaited call resolved.
type Result string

const (
	// Confirmed means the collaborator responded within the deadline.
	// The response may still be an error; the caller inspects the
	// future for that.
	Confirmed Result = "CONFIRMED"

	// Fallback means the deadline elapsed first and the caller must
	// substitute its predetermined degraded result.
	Fallback Result = "FALLBACK"
)

// Supervisor holds one checkout session's fallback state. It is scoped
// to a single workflow run; degraded-mode decisions never leak across
// sessions.
type Supervisor struct {
	threshold int
	fallbacks int
}

// New returns a supervisor that switches the session to degraded mode
// after threshold fallback activations. A threshold of 0 disables
// degraded mode.
func New(threshold int) *Supervisor {
	return &Supervisor{threshold: threshold}
}

// Degraded reports whether the session has seen enough fallbacks that
// subsequent calls should skip the collaborator outright, avoiding
// repeated full-timeout costs.
func (s *Supervisor) Degraded() bool {
	return s.threshold > 0 && s.fallbacks >= s.threshold
}

// Fallbacks reports how many awaits in this session fell back.
func (s *Supervisor) Fallbacks() int {
	return s.fallbacks
}

// Await races fut against the deadline and returns how the call
// resolved. In degraded mode it returns Fallback immediately without
// waiting.
func (s *Supervisor) Await(ctx workflow.Context, name string, fut workflow.Future, deadline time.Duration) Result {
	logger := workflow.GetLogger(ctx)

	if s.Degraded() {
		logger.Warn("Session degraded, skipping collaborator wait", "call", name)
		return Fallback
	}

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	timer := workflow.NewTimer(timerCtx, deadline)

	completed := false
	selector := workflow.NewSelector(ctx)
	selector.AddFuture(fut, func(workflow.Future) {
		completed = true
	})
	selector.AddFuture(timer, func(workflow.Future) {})
	selector.Select(ctx)

	if completed {
		cancelTimer()
		return Confirmed
	}

	s.fallbacks++
	logger.Warn("Collaborator missed deadline, substituting fallback result",
		"call", name, "deadline", deadline, "fallbacks", s.fallbacks)
	return Fallback
}
