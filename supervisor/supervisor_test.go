package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

// probe drives a supervisor through a sequence of awaits, each backed
// by a timer that either beats or misses the deadline.
type probe struct {
	Threshold int
	// Delays are the collaborator latencies, one await per entry.
	Delays []time.Duration
	// Deadline bounds every await.
	Deadline time.Duration
}

type probeResult struct {
	Results   []Result
	Fallbacks int
	Degraded  bool
}

func probeWorkflow(ctx workflow.Context, p probe) (probeResult, error) {
	sup := New(p.Threshold)
	out := probeResult{}
	for _, delay := range p.Delays {
		fut := workflow.NewTimer(ctx, delay)
		out.Results = append(out.Results, sup.Await(ctx, "probe", fut, p.Deadline))
	}
	out.Fallbacks = sup.Fallbacks()
	out.Degraded = sup.Degraded()
	return out, nil
}

func runProbe(t *testing.T, p probe) probeResult {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(probeWorkflow)

	env.ExecuteWorkflow(probeWorkflow, p)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out probeResult
	require.NoError(t, env.GetWorkflowResult(&out))
	return out
}

func TestAwait(t *testing.T) {
	tests := []struct {
		name          string
		probe         probe
		wantResults   []Result
		wantFallbacks int
		wantDegraded  bool
	}{
		{
			name: "Fast collaborator confirms",
			probe: probe{
				Threshold: 2,
				Delays:    []time.Duration{time.Second},
				Deadline:  15 * time.Second,
			},
			wantResults: []Result{Confirmed},
		},
		{
			name: "Slow collaborator falls back",
			probe: probe{
				Threshold: 2,
				Delays:    []time.Duration{time.Minute},
				Deadline:  15 * time.Second,
			},
			wantResults:   []Result{Fallback},
			wantFallbacks: 1,
		},
		{
			name: "Threshold trips degraded mode",
			probe: probe{
				Threshold: 2,
				Delays:    []time.Duration{time.Minute, time.Minute, time.Second},
				Deadline:  15 * time.Second,
			},
			wantResults:   []Result{Fallback, Fallback, Fallback},
			wantFallbacks: 2,
			wantDegraded:  true,
		},
		{
			name: "Recovery before the threshold stays healthy",
			probe: probe{
				Threshold: 2,
				Delays:    []time.Duration{time.Minute, time.Second, time.Second},
				Deadline:  15 * time.Second,
			},
			wantResults:   []Result{Fallback, Confirmed, Confirmed},
			wantFallbacks: 1,
		},
		{
			name: "Zero threshold never degrades",
			probe: probe{
				Threshold: 0,
				Delays:    []time.Duration{time.Minute, time.Minute, time.Minute},
				Deadline:  15 * time.Second,
			},
			wantResults:   []Result{Fallback, Fallback, Fallback},
			wantFallbacks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runProbe(t, tt.probe)
			assert.Equal(t, tt.wantResults, out.Results)
			assert.Equal(t, tt.wantFallbacks, out.Fallbacks)
			assert.Equal(t, tt.wantDegraded, out.Degraded)
		})
	}
}
