// Package monitor infers whether the remote LinkedIn session behind the
// triage agent is live. A Monitor probes the scan agent on a fixed
// schedule, folds outcomes into a connection State and publishes every
// change to subscribed presenters.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/mbvlabs/linkpulse/internal/agent"
	"github.com/mbvlabs/linkpulse/internal/broadcast"
	"github.com/mbvlabs/linkpulse/internal/logger"
)

const (
	DefaultInitialDelay     = 1500 * time.Millisecond
	DefaultInterval         = 30 * time.Second
	DefaultTimeout          = 15 * time.Second
	DefaultFailureThreshold = 2
)

// Options tunes a Monitor. Zero values fall back to the defaults above.
type Options struct {
	AgentID          string
	InitialDelay     time.Duration
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int
	Logger           logger.Logger
	// Now overrides the wall clock used for timestamps and uptime.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	if o.Logger == nil {
		o.Logger = logger.Noop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Monitor owns one connection State for a session. It is safe for
// concurrent use. A Monitor cannot be restarted after Stop.
type Monitor struct {
	opts        Options
	prober      *Prober
	log         logger.Logger
	broadcaster *broadcast.Broadcaster

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	reducer    *reducer
	agentID    string
	nextSeq    uint64
	appliedSeq uint64
	started    bool
	stopped    bool

	probes sync.WaitGroup
	stopCh chan struct{}
	doneCh chan struct{}
}

func New(invoker agent.Invoker, opts Options) *Monitor {
	opts = opts.withDefaults()

	prober := NewProber(invoker, opts.Timeout)
	prober.now = opts.Now

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		opts:        opts,
		prober:      prober,
		log:         opts.Logger,
		broadcaster: broadcast.New(),
		ctx:         ctx,
		cancel:      cancel,
		reducer:     newReducer(opts.FailureThreshold, opts.Now()),
		agentID:     opts.AgentID,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the session: uptime is measured from here, the first probe
// runs after the initial delay and then on every interval tick.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	m.reducer.sessionStart = m.opts.Now()
	go m.run()
}

// Stop cancels both timers and any in-flight probe. Completions that land
// afterwards are dropped. Subscriber channels are closed.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	m.cancel()
	close(m.stopCh)
	m.mu.Unlock()

	if started {
		<-m.doneCh
	}
	m.probes.Wait()
	m.broadcaster.Close()
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reducer.state.clone()
}

// Subscribe returns a channel signalled after every state change. Read the
// new state with Snapshot.
func (m *Monitor) Subscribe() chan struct{} {
	return m.broadcaster.Subscribe()
}

func (m *Monitor) Unsubscribe(ch chan struct{}) {
	m.broadcaster.Unsubscribe(ch)
}

// AgentID returns the scan agent currently probed.
func (m *Monitor) AgentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentID
}

// Reconnect clears the failure streak, shows reconnecting and sends an
// out-of-band probe. Probes dispatched before the call can no longer
// change the state. The periodic schedule is not touched.
func (m *Monitor) Reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.reducer.reconnect()
	m.appliedSeq = m.nextSeq
	m.mu.Unlock()

	m.log.Info("manual reconnect requested")
	m.broadcaster.Broadcast()
	m.dispatch("manual")
}

// CheckNow sends an out-of-band probe without resetting the failure streak.
func (m *Monitor) CheckNow() {
	m.dispatch("on demand")
}

// Retarget switches future probes to agentID and reconnects.
func (m *Monitor) Retarget(agentID string) {
	m.mu.Lock()
	if m.stopped || agentID == m.agentID {
		m.mu.Unlock()
		return
	}
	prev := m.agentID
	m.agentID = agentID
	m.mu.Unlock()

	m.log.Info("scan agent changed from %s to %s", prev, agentID)
	m.Reconnect()
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	initial := time.NewTimer(m.opts.InitialDelay)
	defer initial.Stop()

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-initial.C:
			m.dispatch("initial")
		case <-ticker.C:
			m.dispatch("scheduled")
		case <-m.stopCh:
			return
		}
	}
}

// dispatch starts one probe in its own goroutine so a slow agent never
// delays the next tick.
func (m *Monitor) dispatch(reason string) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.nextSeq++
	seq := m.nextSeq
	agentID := m.agentID
	changed := m.reducer.beginProbe()
	m.probes.Add(1)
	m.mu.Unlock()

	m.log.Debug("probe %d dispatched (%s)", seq, reason)
	if changed {
		m.broadcaster.Broadcast()
	}

	go func() {
		defer m.probes.Done()
		outcome := m.prober.Probe(m.ctx, agentID)
		m.commit(seq, outcome)
	}()
}

func (m *Monitor) commit(seq uint64, outcome Outcome) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.log.Debug("probe %d finished after stop, discarded", seq)
		return
	}
	if seq <= m.appliedSeq {
		m.mu.Unlock()
		m.log.Debug("probe %d is stale (latest applied %d), discarded", seq, m.appliedSeq)
		return
	}
	m.appliedSeq = seq
	t := m.reducer.observe(outcome, m.opts.Now())
	failures := m.reducer.state.ConsecutiveFailures
	m.mu.Unlock()

	switch outcome.Kind {
	case OutcomeTimeout:
		m.log.Warn("health check timed out after %s", m.opts.Timeout)
	case OutcomeFailed:
		m.log.Warn("health check failed: %v", outcome.Err)
	default:
		m.log.Debug("health check ok in %dms", outcome.Latency.Milliseconds())
	}
	if t.recovered() {
		m.log.Info("connection recovered after %d failed checks", t.prevFailures)
	}
	if t.lost() {
		m.log.Error("connection lost after %d consecutive failures", failures)
	}

	m.broadcaster.Broadcast()
}
