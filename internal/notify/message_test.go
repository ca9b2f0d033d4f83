package notify

import (
	"testing"
	"time"

	"github.com/openstatus-dev/openstatus/internal/engine"
	"github.com/openstatus-dev/openstatus/internal/types"
)

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func TestBuildMessageData(t *testing.T) {
	m := engine.Snapshot{
		ID:   42,
		Name: "API",
		URL:  "https://api.example.com",
	}

	ts := time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC).UnixMilli()

	ev := &engine.Event{
		Kind:         types.EventAlert,
		MonitorID:    42,
		StatusCode:   503,
		ErrorMessage: "expected status code 200, got 503",
		Timestamp:    ts,
		LatencyMS:    123,
		Regions:      []string{"ams", "iad"},
	}

	data := BuildMessageData(ev, m, "https://app.example.com/")

	if data.MonitorName != "API" || data.MonitorURL != "https://api.example.com" {
		t.Errorf("monitor identity = %q %q", data.MonitorName, data.MonitorURL)
	}
	if data.Status != "503 Service Unavailable" {
		t.Errorf("status = %q, want %q", data.Status, "503 Service Unavailable")
	}
	if data.Region != "ams, iad" {
		t.Errorf("region = %q", data.Region)
	}
	if data.Latency != "123 ms" {
		t.Errorf("latency = %q", data.Latency)
	}
	if data.Timestamp != "May 1, 2025 10:30:00 UTC" {
		t.Errorf("timestamp = %q", data.Timestamp)
	}
	if data.DashboardURL != "https://app.example.com/monitors/42" {
		t.Errorf("dashboard url = %q", data.DashboardURL)
	}
	if data.IncidentDuration != "" {
		t.Errorf("alert events never carry a duration, got %q", data.IncidentDuration)
	}
}

func TestBuildMessageDataDuration(t *testing.T) {
	m := engine.Snapshot{ID: 1, Name: "API", URL: "https://api.example.com"}

	tests := []struct {
		name     string
		kind     types.EventKind
		duration *time.Duration
		want     string
	}{
		{name: "recovery with duration", kind: types.EventRecovery, duration: durationPtr(5*time.Minute + 30*time.Second), want: "5m 30s"},
		{name: "degraded with duration", kind: types.EventDegraded, duration: durationPtr(12 * time.Second), want: "12s"},
		{name: "recovery without duration stays absent", kind: types.EventRecovery, want: ""},
		{name: "zero duration is present, not absent", kind: types.EventRecovery, duration: durationPtr(0), want: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &engine.Event{Kind: tt.kind, MonitorID: 1, StatusCode: 200, Duration: tt.duration}
			data := BuildMessageData(ev, m, "https://app.example.com")
			if data.IncidentDuration != tt.want {
				t.Errorf("IncidentDuration = %q, want %q", data.IncidentDuration, tt.want)
			}
		})
	}
}

func TestStatusDescriptionNoResponse(t *testing.T) {
	ev := &engine.Event{Kind: types.EventAlert, ErrorMessage: "dial tcp: connection refused"}

	data := BuildMessageData(ev, engine.Snapshot{}, "https://app.example.com")
	if data.Status != "No response" {
		t.Errorf("status = %q, want %q", data.Status, "No response")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{500 * time.Millisecond, "1s"}, // rounds
		{12 * time.Second, "12s"},
		{5*time.Minute + 30*time.Second, "5m 30s"},
		{2 * time.Hour, "2h"},
		{time.Hour + 30*time.Second, "1h 30s"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "26h 3m 4s"},
		{-time.Minute, "0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
