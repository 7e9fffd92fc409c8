package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbvlabs/linkpulse/internal/agent"
)

// HealthCheckMessage is the fixed prompt sent to the scan agent.
const HealthCheckMessage = "Connection health check: respond with status OK"

// OutcomeKind classifies a finished probe.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeFailed
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is the result of one health check. Latency is only meaningful
// for OutcomeOK.
type Outcome struct {
	Kind    OutcomeKind
	Latency time.Duration
	Err     error
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeOK
}

// Prober sends health checks through an agent invoker.
type Prober struct {
	invoker agent.Invoker
	timeout time.Duration
	now     func() time.Time
}

func NewProber(invoker agent.Invoker, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		invoker: invoker,
		timeout: timeout,
		now:     time.Now,
	}
}

// Probe runs one health check against agentID. It returns once the agent
// replies, the timeout elapses or ctx is cancelled, even if the invoker
// itself ignores cancellation.
func (p *Prober) Probe(ctx context.Context, agentID string) Outcome {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type reply struct {
		result agent.Result
		err    error
	}
	done := make(chan reply, 1)

	start := p.now()
	go func() {
		result, err := p.invoker.Invoke(probeCtx, HealthCheckMessage, agentID)
		done <- reply{result: result, err: err}
	}()

	select {
	case r := <-done:
		latency := p.now().Sub(start)
		if r.err != nil {
			if errors.Is(probeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return p.timedOut()
			}
			return Outcome{Kind: OutcomeFailed, Err: r.err}
		}
		if !r.result.Succeeded() {
			return Outcome{Kind: OutcomeFailed, Err: applicationError(r.result)}
		}
		return Outcome{Kind: OutcomeOK, Latency: latency}
	case <-probeCtx.Done():
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeFailed, Err: ctx.Err()}
		}
		return p.timedOut()
	}
}

func (p *Prober) timedOut() Outcome {
	return Outcome{
		Kind: OutcomeTimeout,
		Err:  fmt.Errorf("no response within %s", p.timeout),
	}
}

func applicationError(result agent.Result) error {
	if result.Error != "" {
		return fmt.Errorf("agent reported failure: %s", result.Error)
	}
	if result.Response != nil && result.Response.Status != "" {
		return fmt.Errorf("agent reported status %q", result.Response.Status)
	}
	return errors.New("agent did not report success")
}
