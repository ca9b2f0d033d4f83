package notify

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openstatus-dev/openstatus/internal/engine"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// MessageData is the channel-agnostic projection of a notification event.
// Every provider adapter renders its payload from these pre-formatted
// fields and nothing else.
type MessageData struct {
	MonitorName  string
	MonitorURL   string
	Status       string // human status description, e.g. "503 Service Unavailable"
	Region       string
	Latency      string // formatted with unit, e.g. "123 ms"
	Timestamp    string // fixed format, UTC
	Message      string // plain error message, un-escaped
	DashboardURL string

	// IncidentDuration is a human duration like "5m 30s". Empty means
	// absent, which is distinct from a zero duration ("0s").
	IncidentDuration string
}

const timestampFormat = "Jan 2, 2006 15:04:05 MST"

// BuildMessageData projects an event and its monitor into the fields the
// provider adapters consume. It is pure: no I/O, no clock reads.
func BuildMessageData(ev *engine.Event, m engine.Snapshot, dashboardBase string) MessageData {
	data := MessageData{
		MonitorName:  m.Name,
		MonitorURL:   m.URL,
		Status:       statusDescription(ev),
		Region:       strings.Join(ev.Regions, ", "),
		Latency:      fmt.Sprintf("%d ms", ev.LatencyMS),
		Timestamp:    time.UnixMilli(ev.Timestamp).UTC().Format(timestampFormat),
		Message:      ev.ErrorMessage,
		DashboardURL: fmt.Sprintf("%s/monitors/%d", strings.TrimRight(dashboardBase, "/"), ev.MonitorID),
	}

	if ev.Duration != nil && (ev.Kind == types.EventRecovery || ev.Kind == types.EventDegraded) {
		data.IncidentDuration = FormatDuration(*ev.Duration)
	}

	return data
}

// TestMessageData builds the sample projection used for test notifications.
func TestMessageData(dashboardBase string) MessageData {
	return MessageData{
		MonitorName:  "Test Monitor",
		MonitorURL:   "https://www.openstatus.dev",
		Status:       "200 OK",
		Region:       "ams",
		Latency:      "42 ms",
		Timestamp:    time.Now().UTC().Format(timestampFormat),
		Message:      "This is a test notification.",
		DashboardURL: strings.TrimRight(dashboardBase, "/") + "/monitors",
	}
}

func statusDescription(ev *engine.Event) string {
	if ev.StatusCode > 0 {
		if text := http.StatusText(ev.StatusCode); text != "" {
			return fmt.Sprintf("%d %s", ev.StatusCode, text)
		}
		return fmt.Sprintf("%d", ev.StatusCode)
	}
	if ev.ErrorMessage != "" {
		return "No response"
	}
	return "Operational"
}

// FormatDuration renders a duration as "1h 5m 30s", dropping zero-valued
// leading units. A sub-second duration renders as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}

	return strings.Join(parts, " ")
}
