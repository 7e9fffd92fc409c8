package monitor

import (
	"time"
)

// Status is the inferred state of the link to the remote account.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusChecking     Status = "checking"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
)

// State is the connection snapshot shared with every presenter. Optional
// fields are nil until the corresponding event has happened.
type State struct {
	Status              Status     `json:"status"`
	LastChecked         *time.Time `json:"last_checked"`
	LastSuccessful      *time.Time `json:"last_successful"`
	LatencyMs           *int64     `json:"latency_ms"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	UptimeSeconds       int64      `json:"uptime_seconds"`
}

func (s State) clone() State {
	out := s
	if s.LastChecked != nil {
		t := *s.LastChecked
		out.LastChecked = &t
	}
	if s.LastSuccessful != nil {
		t := *s.LastSuccessful
		out.LastSuccessful = &t
	}
	if s.LatencyMs != nil {
		v := *s.LatencyMs
		out.LatencyMs = &v
	}
	return out
}

// transition describes what one probe completion did to the state.
type transition struct {
	from         Status
	to           Status
	prevFailures int
}

func (t transition) recovered() bool {
	return t.to == StatusConnected && t.prevFailures > 0
}

func (t transition) lost() bool {
	return t.to == StatusDisconnected && t.from != StatusDisconnected && t.from != StatusReconnecting
}

// reducer folds probe outcomes into State. It is not safe for concurrent
// use; the Monitor serializes access.
type reducer struct {
	failureThreshold int
	sessionStart     time.Time
	state            State
}

func newReducer(failureThreshold int, sessionStart time.Time) *reducer {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &reducer{
		failureThreshold: failureThreshold,
		sessionStart:     sessionStart,
		state:            State{Status: StatusChecking},
	}
}

// beginProbe applies the optimistic status shown while a probe is in
// flight. A healthy connection is left alone so it does not flicker.
func (r *reducer) beginProbe() (changed bool) {
	prev := r.state.Status
	switch {
	case prev == StatusDisconnected:
		r.state.Status = StatusReconnecting
	case r.state.ConsecutiveFailures > 0:
		r.state.Status = StatusChecking
	}
	return r.state.Status != prev
}

// observe applies a completed probe.
func (r *reducer) observe(outcome Outcome, now time.Time) transition {
	t := transition{
		from:         r.state.Status,
		prevFailures: r.state.ConsecutiveFailures,
	}

	checked := now
	r.state.LastChecked = &checked
	r.state.UptimeSeconds = uptimeSeconds(r.sessionStart, now)

	if outcome.OK() {
		latency := outcome.Latency.Milliseconds()
		r.state.LatencyMs = &latency
		r.state.ConsecutiveFailures = 0
		r.state.Status = StatusConnected
		if r.state.LastSuccessful == nil || now.After(*r.state.LastSuccessful) {
			successful := now
			r.state.LastSuccessful = &successful
		}
	} else {
		r.state.LatencyMs = nil
		r.state.ConsecutiveFailures++
		if r.state.ConsecutiveFailures >= r.failureThreshold {
			r.state.Status = StatusDisconnected
		} else {
			r.state.Status = StatusChecking
		}
	}

	t.to = r.state.Status
	return t
}

// reconnect is the manual override: forget the failure streak and show
// that a new attempt is under way.
func (r *reducer) reconnect() {
	r.state.ConsecutiveFailures = 0
	r.state.Status = StatusReconnecting
}

func uptimeSeconds(start, now time.Time) int64 {
	if now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / time.Second)
}
