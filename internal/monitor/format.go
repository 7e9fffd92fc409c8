package monitor

import (
	"fmt"
	"time"
)

// RelativeTime renders how long ago t was, as shown next to "Last Checked"
// and "Last Successful".
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "Never"
	}
	sec := int64(now.Sub(*t) / time.Second)
	switch {
	case sec < 5:
		return "Just now"
	case sec < 60:
		return fmt.Sprintf("%ds ago", sec)
	case sec < 3600:
		return fmt.Sprintf("%dm ago", sec/60)
	default:
		return fmt.Sprintf("%dh ago", sec/3600)
	}
}

// FormatUptime renders a session uptime.
func FormatUptime(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

// FormatCompactUptime is the coarser variant used in settings tiles.
func FormatCompactUptime(seconds int64) string {
	switch {
	case seconds <= 0:
		return "--"
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

// FormatClock renders t as local wall-clock time, or "--" when absent.
func FormatClock(t *time.Time) string {
	if t == nil {
		return "--"
	}
	return t.Local().Format("15:04:05")
}

func FormatLatency(ms *int64) string {
	if ms == nil {
		return "--"
	}
	return fmt.Sprintf("%dms", *ms)
}
