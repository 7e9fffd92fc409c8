package monitor

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sessionStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	okOutcome    = Outcome{Kind: OutcomeOK, Latency: 120 * time.Millisecond}
	failOutcome  = Outcome{Kind: OutcomeFailed, Err: errors.New("boom")}
	timeoutOut   = Outcome{Kind: OutcomeTimeout, Err: errors.New("no response within 15s")}
)

func TestReducerStartsChecking(t *testing.T) {
	r := newReducer(2, sessionStart)

	assert.Equal(t, StatusChecking, r.state.Status)
	assert.Nil(t, r.state.LastChecked)
	assert.Nil(t, r.state.LastSuccessful)
	assert.Nil(t, r.state.LatencyMs)
	assert.Zero(t, r.state.ConsecutiveFailures)
}

func TestReducerDefaultThreshold(t *testing.T) {
	r := newReducer(0, sessionStart)
	assert.Equal(t, DefaultFailureThreshold, r.failureThreshold)
}

func TestReducerSteadySuccess(t *testing.T) {
	r := newReducer(2, sessionStart)

	for i := 1; i <= 5; i++ {
		r.beginProbe()
		now := sessionStart.Add(time.Duration(i) * 30 * time.Second)
		r.observe(okOutcome, now)

		require.Equal(t, StatusConnected, r.state.Status, "cycle %d", i)
		require.NotNil(t, r.state.LatencyMs)
		assert.Equal(t, int64(120), *r.state.LatencyMs)
		assert.Zero(t, r.state.ConsecutiveFailures)
		assert.Equal(t, now, *r.state.LastSuccessful)
		assert.Equal(t, int64(i*30), r.state.UptimeSeconds)
	}
}

func TestReducerTwoFailuresDisconnect(t *testing.T) {
	r := newReducer(2, sessionStart)

	r.beginProbe()
	r.observe(failOutcome, sessionStart.Add(2*time.Second))
	assert.Equal(t, StatusChecking, r.state.Status)
	assert.Equal(t, 1, r.state.ConsecutiveFailures)
	assert.Nil(t, r.state.LatencyMs)

	r.beginProbe()
	tr := r.observe(timeoutOut, sessionStart.Add(32*time.Second))
	assert.Equal(t, StatusDisconnected, r.state.Status)
	assert.Equal(t, 2, r.state.ConsecutiveFailures)
	assert.True(t, tr.lost())
}

func TestReducerFailureFromConnectedGoesChecking(t *testing.T) {
	r := newReducer(2, sessionStart)
	r.observe(okOutcome, sessionStart.Add(time.Second))

	assert.False(t, r.beginProbe(), "connected should not flicker while probing")
	assert.Equal(t, StatusConnected, r.state.Status)

	r.observe(failOutcome, sessionStart.Add(31*time.Second))
	assert.Equal(t, StatusChecking, r.state.Status)
	assert.Equal(t, 1, r.state.ConsecutiveFailures)
	assert.Nil(t, r.state.LatencyMs, "latency is cleared on failure")
	require.NotNil(t, r.state.LastSuccessful)
	assert.Equal(t, sessionStart.Add(time.Second), *r.state.LastSuccessful)
}

func TestReducerBeginProbe(t *testing.T) {
	tests := []struct {
		name        string
		status      Status
		failures    int
		wantStatus  Status
		wantChanged bool
	}{
		{name: "initial checking", status: StatusChecking, failures: 0, wantStatus: StatusChecking},
		{name: "connected stays", status: StatusConnected, failures: 0, wantStatus: StatusConnected},
		{name: "disconnected becomes reconnecting", status: StatusDisconnected, failures: 2, wantStatus: StatusReconnecting, wantChanged: true},
		{name: "failing shows checking", status: StatusChecking, failures: 1, wantStatus: StatusChecking},
		{name: "manual reconnect stays reconnecting", status: StatusReconnecting, failures: 0, wantStatus: StatusReconnecting},
		{name: "reconnecting with failures shows checking", status: StatusReconnecting, failures: 1, wantStatus: StatusChecking, wantChanged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReducer(2, sessionStart)
			r.state.Status = tt.status
			r.state.ConsecutiveFailures = tt.failures

			changed := r.beginProbe()
			assert.Equal(t, tt.wantStatus, r.state.Status)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.failures, r.state.ConsecutiveFailures, "beginProbe never touches the failure count")
		})
	}
}

func TestReducerRecoveryFromDisconnected(t *testing.T) {
	for _, tc := range []struct {
		name         string
		outcome      Outcome
		wantStatus   Status
		wantFailures int
	}{
		{name: "success reconnects", outcome: okOutcome, wantStatus: StatusConnected, wantFailures: 0},
		{name: "failure stays down", outcome: failOutcome, wantStatus: StatusDisconnected, wantFailures: 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newReducer(2, sessionStart)
			r.observe(failOutcome, sessionStart.Add(time.Second))
			r.observe(failOutcome, sessionStart.Add(2*time.Second))
			require.Equal(t, StatusDisconnected, r.state.Status)

			r.beginProbe()
			require.Equal(t, StatusReconnecting, r.state.Status)

			tr := r.observe(tc.outcome, sessionStart.Add(3*time.Second))
			assert.Equal(t, tc.wantStatus, r.state.Status)
			assert.Equal(t, tc.wantFailures, r.state.ConsecutiveFailures)
			assert.Equal(t, tc.outcome.OK(), tr.recovered())
			assert.False(t, tr.lost(), "still being down is not a new loss")
		})
	}
}

func TestReducerManualReconnect(t *testing.T) {
	r := newReducer(2, sessionStart)
	r.observe(failOutcome, sessionStart.Add(time.Second))
	r.observe(failOutcome, sessionStart.Add(2*time.Second))

	r.reconnect()
	assert.Equal(t, StatusReconnecting, r.state.Status)
	assert.Zero(t, r.state.ConsecutiveFailures)

	// A single failure after a manual reset is below the threshold again.
	r.observe(failOutcome, sessionStart.Add(3*time.Second))
	assert.Equal(t, StatusChecking, r.state.Status)
	assert.Equal(t, 1, r.state.ConsecutiveFailures)
}

func TestReducerLastSuccessfulNeverMovesBack(t *testing.T) {
	r := newReducer(2, sessionStart)
	later := sessionStart.Add(time.Minute)
	r.observe(okOutcome, later)
	r.observe(okOutcome, sessionStart.Add(30*time.Second))

	require.NotNil(t, r.state.LastSuccessful)
	assert.Equal(t, later, *r.state.LastSuccessful)
}

func TestReducerUptimeNotPausedByOutage(t *testing.T) {
	r := newReducer(2, sessionStart)
	r.observe(failOutcome, sessionStart.Add(90*time.Second))
	r.observe(failOutcome, sessionStart.Add(3725*time.Second))
	assert.Equal(t, int64(3725), r.state.UptimeSeconds)
}

// For any outcome sequence the failure count equals the failures since the
// last success and disconnected tracks the threshold exactly.
func TestReducerRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	outcomes := []Outcome{okOutcome, failOutcome, timeoutOut}

	for run := 0; run < 200; run++ {
		r := newReducer(2, sessionStart)
		sinceSuccess := 0
		var lastSuccess *time.Time

		for step := 0; step < 40; step++ {
			if rng.Intn(10) == 0 {
				r.reconnect()
				sinceSuccess = 0
				assert.Equal(t, StatusReconnecting, r.state.Status)
			}
			r.beginProbe()

			o := outcomes[rng.Intn(len(outcomes))]
			now := sessionStart.Add(time.Duration(step+1) * time.Second)
			r.observe(o, now)

			if o.OK() {
				sinceSuccess = 0
				lastSuccess = &now
			} else {
				sinceSuccess++
			}

			s := r.state
			require.Equal(t, sinceSuccess, s.ConsecutiveFailures)
			require.Equal(t, s.ConsecutiveFailures >= 2 && !o.OK(), s.Status == StatusDisconnected)
			if s.Status == StatusConnected {
				require.Zero(t, s.ConsecutiveFailures)
				require.NotNil(t, s.LatencyMs)
			}
			require.Equal(t, o.OK(), s.LatencyMs != nil)
			require.Equal(t, now, *s.LastChecked)
			if lastSuccess != nil {
				require.Equal(t, *lastSuccess, *s.LastSuccessful)
			}
		}
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	r := newReducer(2, sessionStart)
	r.observe(okOutcome, sessionStart.Add(time.Second))

	snap := r.state.clone()
	*snap.LatencyMs = 999
	*snap.LastChecked = time.Time{}

	assert.Equal(t, int64(120), *r.state.LatencyMs)
	assert.Equal(t, sessionStart.Add(time.Second), *r.state.LastChecked)
}
