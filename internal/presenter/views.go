// Package presenter derives the display models shown by every connection
// surface (header badge, sidebar dot, settings card, terminal) from one
// monitor snapshot. Nothing here holds state.
package presenter

import (
	"strconv"
	"time"

	"github.com/mbvlabs/linkpulse/internal/monitor"
)

// Tone is the colour family a surface uses for a status.
type Tone string

const (
	ToneGreen Tone = "green"
	ToneAmber Tone = "amber"
	ToneRed   Tone = "red"
	ToneBlue  Tone = "blue"
)

// Row is one label/value line in the header details panel.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Alert bool   `json:"alert,omitempty"`
}

type HeaderBadge struct {
	Label         string `json:"label"`
	Tone          Tone   `json:"tone"`
	Animate       bool   `json:"animate"`
	Latency       string `json:"latency,omitempty"`
	Details       []Row  `json:"details"`
	ShowReconnect bool   `json:"show_reconnect"`
	ActiveNote    string `json:"active_note,omitempty"`
	Footer        string `json:"footer"`
}

type SidebarDot struct {
	Label       string `json:"label"`
	Tone        Tone   `json:"tone"`
	Pulse       bool   `json:"pulse"`
	AgentStatus string `json:"agent_status"`
}

type Tile struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Tone  Tone   `json:"tone,omitempty"`
}

type SettingsCard struct {
	Label         string `json:"label"`
	Tone          Tone   `json:"tone"`
	Description   string `json:"description"`
	Tiles         []Tile `json:"tiles"`
	ShowReconnect bool   `json:"show_reconnect"`
}

// View bundles every surface so a single push keeps them consistent.
type View struct {
	Header   HeaderBadge  `json:"header"`
	Sidebar  SidebarDot   `json:"sidebar"`
	Settings SettingsCard `json:"settings"`
}

func Build(s monitor.State, now time.Time) View {
	return View{
		Header:   Header(s, now),
		Sidebar:  Sidebar(s),
		Settings: Settings(s),
	}
}

func Header(s monitor.State, now time.Time) HeaderBadge {
	badge := HeaderBadge{
		Footer: "Auto-checks every 30 seconds",
	}

	switch s.Status {
	case monitor.StatusConnected:
		badge.Label, badge.Tone = "Connected", ToneGreen
		badge.ActiveNote = "Agent is active and processing messages"
		if s.LatencyMs != nil {
			badge.Latency = monitor.FormatLatency(s.LatencyMs)
		}
	case monitor.StatusDisconnected:
		badge.Label, badge.Tone = "Disconnected", ToneRed
		badge.ShowReconnect = true
	case monitor.StatusReconnecting:
		badge.Label, badge.Tone, badge.Animate = "Reconnecting...", ToneBlue, true
	default:
		badge.Label, badge.Tone, badge.Animate = "Checking...", ToneAmber, true
	}

	badge.Details = []Row{
		{Label: "Last Checked", Value: monitor.RelativeTime(s.LastChecked, now)},
		{Label: "Last Successful", Value: monitor.RelativeTime(s.LastSuccessful, now)},
	}
	if s.LatencyMs != nil {
		badge.Details = append(badge.Details, Row{Label: "Response Latency", Value: monitor.FormatLatency(s.LatencyMs)})
	}
	badge.Details = append(badge.Details, Row{Label: "Session Uptime", Value: monitor.FormatUptime(s.UptimeSeconds)})
	if s.ConsecutiveFailures > 0 {
		badge.Details = append(badge.Details, Row{
			Label: "Failed Checks",
			Value: strconv.Itoa(s.ConsecutiveFailures),
			Alert: true,
		})
	}
	return badge
}

func Sidebar(s monitor.State) SidebarDot {
	switch s.Status {
	case monitor.StatusConnected:
		return SidebarDot{Label: "LinkedIn Connected", Tone: ToneGreen, AgentStatus: "Ready"}
	case monitor.StatusDisconnected:
		return SidebarDot{Label: "Disconnected", Tone: ToneRed, AgentStatus: "Offline"}
	case monitor.StatusReconnecting:
		return SidebarDot{Label: "Reconnecting...", Tone: ToneAmber, Pulse: true, AgentStatus: "Checking"}
	default:
		return SidebarDot{Label: "Checking...", Tone: ToneAmber, Pulse: true, AgentStatus: "Checking"}
	}
}

func Settings(s monitor.State) SettingsCard {
	card := SettingsCard{}
	status := Tile{Label: "Status"}

	switch s.Status {
	case monitor.StatusConnected:
		card.Label, card.Tone = "Connected", ToneGreen
		card.Description = "Your LinkedIn account is connected and active"
		status.Value, status.Tone = "Active", ToneGreen
	case monitor.StatusDisconnected:
		card.Label, card.Tone = "Disconnected", ToneRed
		card.Description = "Connection lost. Click reconnect to try again."
		card.ShowReconnect = true
		status.Value, status.Tone = "Offline", ToneRed
	case monitor.StatusReconnecting:
		card.Label, card.Tone = "Reconnecting...", ToneAmber
		card.Description = "Verifying connection status..."
		status.Value, status.Tone = "Pending", ToneAmber
	default:
		card.Label, card.Tone = "Checking...", ToneAmber
		card.Description = "Verifying connection status..."
		status.Value, status.Tone = "Pending", ToneAmber
	}

	card.Tiles = []Tile{
		status,
		{Label: "Latency", Value: monitor.FormatLatency(s.LatencyMs)},
		{Label: "Last Check", Value: monitor.FormatClock(s.LastChecked)},
		{Label: "Uptime", Value: monitor.FormatCompactUptime(s.UptimeSeconds)},
	}
	return card
}
