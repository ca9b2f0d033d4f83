package email

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

func sampleData() notify.MessageData {
	return notify.MessageData{
		MonitorName:  "API",
		MonitorURL:   "https://api.example.com",
		Status:       "503 Service Unavailable",
		Region:       "ams",
		Latency:      "123 ms",
		Timestamp:    "May 1, 2025 10:30:00 UTC",
		Message:      "expected status code 200, got 503",
		DashboardURL: "https://app.example.com/monitors/1",
	}
}

func TestBuildEmail(t *testing.T) {
	subject, html := BuildEmail(types.EventAlert, sampleData())

	if subject != "Alert: API is down" {
		t.Errorf("subject = %q", subject)
	}

	for _, want := range []string{
		`<a href="https://api.example.com">API</a>`,
		"<li><strong>Status:</strong> 503 Service Unavailable</li>",
		"<pre>expected status code 200, got 503</pre>",
		`<a href="https://app.example.com/monitors/1">View Dashboard</a>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestBuildEmailSubjects(t *testing.T) {
	tests := []struct {
		kind types.EventKind
		want string
	}{
		{types.EventRecovery, "Recovered: API is back up"},
		{types.EventDegraded, "Degraded: API is slow"},
		{types.EventTest, "Test notification for API"},
	}

	for _, tt := range tests {
		subject, _ := BuildEmail(tt.kind, sampleData())
		if subject != tt.want {
			t.Errorf("%s: subject = %q, want %q", tt.kind, subject, tt.want)
		}
	}
}

func TestBuildEmailDuration(t *testing.T) {
	data := sampleData()
	data.IncidentDuration = "5m 30s"

	_, html := BuildEmail(types.EventRecovery, data)
	if !strings.Contains(html, "<li><strong>Downtime duration:</strong> 5m 30s</li>") {
		t.Error("recovery email missing duration line")
	}

	_, html = BuildEmail(types.EventAlert, data)
	if strings.Contains(html, "Downtime duration") {
		t.Error("alerts never carry a duration line")
	}
}

func TestSendTestNotSupported(t *testing.T) {
	a := New("", "alerts@example.com")

	err := a.SendTest(context.Background(), sampleData(), types.NotifierConfig{Email: "user@example.com"})
	if !errors.Is(err, notify.ErrTestNotSupported) {
		t.Errorf("SendTest() = %v, want ErrTestNotSupported", err)
	}
}

func TestUnconfiguredAdapterRejects(t *testing.T) {
	a := New("", "alerts@example.com")

	res := a.Send(context.Background(), types.EventAlert, sampleData(), types.NotifierConfig{Email: "user@example.com"})
	if res.State != notify.StateRejected {
		t.Errorf("result = %+v, want rejected", res)
	}
}

func TestSendHonorsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	client := resend.NewClient("test-key")
	client.BaseURL, _ = url.Parse(srv.URL + "/")
	a := &Adapter{client: client, from: "alerts@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := a.Send(ctx, types.EventAlert, sampleData(), types.NotifierConfig{Email: "user@example.com"})

	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("Send blocked %v past the deadline", elapsed)
	}
	if res.State != notify.StateTransportError {
		t.Errorf("result = %+v, want transport error", res)
	}
}
