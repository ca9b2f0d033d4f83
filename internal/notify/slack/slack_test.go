package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

func messageData() notify.MessageData {
	return notify.MessageData{
		MonitorName:  "API",
		MonitorURL:   "https://api.example.com",
		Status:       "503 Service Unavailable",
		Region:       "ams",
		Latency:      "123 ms",
		Timestamp:    "May 1, 2025 10:00:00 UTC",
		Message:      "expected status code 200, got 503",
		DashboardURL: "https://app.example.com/monitors/1",
	}
}

func blockTexts(p Payload) []string {
	var texts []string
	for _, b := range p.Attachments[0].Blocks {
		if b.Text != nil {
			texts = append(texts, b.Text.Text)
		}
		for _, f := range b.Fields {
			texts = append(texts, f.Text)
		}
	}
	return texts
}

func containsText(p Payload, want string) bool {
	for _, t := range blockTexts(p) {
		if strings.Contains(t, want) {
			return true
		}
	}
	return false
}

func TestBuildAlertBlocksColor(t *testing.T) {
	p := BuildAlertBlocks(messageData())

	if len(p.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(p.Attachments))
	}
	if p.Attachments[0].Color != "#ED4245" {
		t.Errorf("alert color = %s, want #ED4245", p.Attachments[0].Color)
	}
	if !containsText(p, "```expected status code 200, got 503```") {
		t.Error("alert payload should carry the error message in a fenced code span")
	}

	last := p.Attachments[0].Blocks[len(p.Attachments[0].Blocks)-1]
	if last.Type != "actions" || len(last.Elements) != 1 || last.Elements[0].Text.Text != "View Dashboard" {
		t.Errorf("alert payload should end in a View Dashboard actions block, got %+v", last)
	}
}

func TestBuildRecoveryBlocksDurationSection(t *testing.T) {
	data := messageData()

	p := BuildRecoveryBlocks(data)
	if p.Attachments[0].Color != "#57F287" {
		t.Errorf("recovery color = %s, want #57F287", p.Attachments[0].Color)
	}
	if containsText(p, "Downtime duration") {
		t.Error("duration section present without an incident duration")
	}

	data.IncidentDuration = "5m 30s"
	p = BuildRecoveryBlocks(data)
	if !containsText(p, "*Downtime duration:* 5m 30s") {
		t.Error("duration section missing when an incident duration is supplied")
	}
}

func TestBuildDegradedBlocksDurationSection(t *testing.T) {
	data := messageData()

	p := BuildDegradedBlocks(data)
	if p.Attachments[0].Color != "#FEE75C" {
		t.Errorf("degraded color = %s, want #FEE75C", p.Attachments[0].Color)
	}
	if containsText(p, "Previous duration") {
		t.Error("duration section present without an incident duration")
	}

	data.IncidentDuration = "12s"
	p = BuildDegradedBlocks(data)
	if !containsText(p, "*Previous duration:* 12s") {
		t.Error("duration section missing when an incident duration is supplied")
	}
}

func TestEscaping(t *testing.T) {
	data := messageData()
	data.MonitorName = "A & B <C>"
	data.Message = "body <html> & more"

	p := BuildAlertBlocks(data)

	if !containsText(p, "A &amp; B &lt;C&gt;") {
		t.Error("monitor name not mrkdwn-escaped")
	}
	if !containsText(p, "```body &lt;html&gt; &amp; more```") {
		t.Error("error message not mrkdwn-escaped")
	}
	if containsText(p, "A & B <C>") {
		t.Error("raw monitor name leaked into block text")
	}

	// Status, region, latency and time fields are already plain and stay
	// untouched.
	if !containsText(p, "*Status:*\n503 Service Unavailable") {
		t.Error("status field missing or altered")
	}
}

func TestFieldGrid(t *testing.T) {
	p := BuildAlertBlocks(messageData())

	var grid *Block
	for i := range p.Attachments[0].Blocks {
		if len(p.Attachments[0].Blocks[i].Fields) > 0 {
			grid = &p.Attachments[0].Blocks[i]
			break
		}
	}

	if grid == nil {
		t.Fatal("no field grid block found")
	}
	if len(grid.Fields) != 4 {
		t.Fatalf("field grid has %d fields, want 4", len(grid.Fields))
	}

	wantPrefixes := []string{"*Status:*", "*Region:*", "*Latency:*", "*Time:*"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(grid.Fields[i].Text, prefix) {
			t.Errorf("field %d = %q, want prefix %q", i, grid.Fields[i].Text, prefix)
		}
	}
}

func TestSend(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("content type = %s", r.Header.Get("Content-Type"))
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		res := New().Send(context.Background(), types.EventAlert, messageData(), types.NotifierConfig{WebhookURL: srv.URL})
		if res.State != notify.StateDelivered {
			t.Errorf("Send() = %+v, want delivered", res)
		}
	})

	t.Run("rejected on 4xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		res := New().Send(context.Background(), types.EventAlert, messageData(), types.NotifierConfig{WebhookURL: srv.URL})
		if res.State != notify.StateRejected {
			t.Errorf("Send() = %+v, want rejected", res)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		res := New().Send(context.Background(), types.EventAlert, messageData(), types.NotifierConfig{WebhookURL: "http://127.0.0.1:1"})
		if res.State != notify.StateTransportError {
			t.Errorf("Send() = %+v, want transport error", res)
		}
	})

	t.Run("missing destination rejected before any call", func(t *testing.T) {
		res := New().Send(context.Background(), types.EventAlert, messageData(), types.NotifierConfig{})
		if res.State != notify.StateRejected {
			t.Errorf("Send() = %+v, want rejected", res)
		}
	})
}

func TestSendTestSupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := New().SendTest(context.Background(), messageData(), types.NotifierConfig{WebhookURL: srv.URL}); err != nil {
		t.Errorf("SendTest() error = %v", err)
	}
}
