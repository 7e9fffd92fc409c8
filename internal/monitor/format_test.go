package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		in   *time.Time
		want string
	}{
		{name: "never", in: nil, want: "Never"},
		{name: "just now", in: ago(4 * time.Second), want: "Just now"},
		{name: "seconds", in: ago(5 * time.Second), want: "5s ago"},
		{name: "upper seconds", in: ago(59 * time.Second), want: "59s ago"},
		{name: "minutes", in: ago(61 * time.Second), want: "1m ago"},
		{name: "upper minutes", in: ago(3599 * time.Second), want: "59m ago"},
		{name: "hours", in: ago(2*time.Hour + 10*time.Minute), want: "2h ago"},
		{name: "clock skew", in: ago(-10 * time.Second), want: "Just now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(tt.in, now))
		})
	}
}

func TestFormatUptime(t *testing.T) {
	tests := map[int64]string{
		0:    "0s",
		59:   "59s",
		60:   "1m 0s",
		125:  "2m 5s",
		3599: "59m 59s",
		3600: "1h 0m",
		7384: "2h 3m",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatUptime(in), "FormatUptime(%d)", in)
	}
}

func TestFormatCompactUptime(t *testing.T) {
	tests := map[int64]string{
		0:    "--",
		42:   "42s",
		125:  "2m",
		7384: "2h 3m",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCompactUptime(in), "FormatCompactUptime(%d)", in)
	}
}

func TestFormatLatencyAndClock(t *testing.T) {
	ms := int64(120)
	assert.Equal(t, "120ms", FormatLatency(&ms))
	assert.Equal(t, "--", FormatLatency(nil))

	assert.Equal(t, "--", FormatClock(nil))
	ts := time.Date(2026, 3, 1, 7, 5, 9, 0, time.Local)
	assert.Equal(t, "07:05:09", FormatClock(&ts))
}
