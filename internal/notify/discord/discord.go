// Package discord delivers notifications to Discord webhooks as embeds.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

const (
	ColorAlert    = 0xED4245
	ColorDegraded = 0xFEE75C
	ColorRecovery = 0x57F287

	username = "OpenStatus"
)

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text string `json:"text"`
}

type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields"`
	Footer      *Footer `json:"footer,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

type WebhookRequest struct {
	Username string  `json:"username"`
	Embeds   []Embed `json:"embeds"`
}

// BuildPayload is the pure half of the adapter contract.
func BuildPayload(kind types.EventKind, data notify.MessageData) WebhookRequest {
	var title string
	var color int

	switch kind {
	case types.EventAlert:
		title = "🚨 Alert"
		color = ColorAlert
	case types.EventRecovery:
		title = "✅ Recovered"
		color = ColorRecovery
	case types.EventDegraded:
		title = "⚠️ Degraded"
		color = ColorDegraded
	default:
		title = "🧪 Test"
		color = ColorRecovery
	}

	fields := []Field{
		{Name: "Status", Value: data.Status, Inline: true},
		{Name: "Region", Value: data.Region, Inline: true},
		{Name: "Latency", Value: data.Latency, Inline: true},
		{Name: "Time", Value: data.Timestamp, Inline: true},
	}

	if data.IncidentDuration != "" && (kind == types.EventRecovery || kind == types.EventDegraded) {
		fields = append(fields, Field{Name: "Downtime duration", Value: data.IncidentDuration, Inline: true})
	}

	if data.Message != "" && kind == types.EventAlert {
		fields = append(fields, Field{Name: "Error", Value: "```" + data.Message + "```", Inline: false})
	}

	return WebhookRequest{
		Username: username,
		Embeds: []Embed{
			{
				Title:       title,
				Description: fmt.Sprintf("[%s](%s)", data.MonitorName, data.MonitorURL),
				Color:       color,
				Fields:      fields,
				Footer:      &Footer{Text: username},
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

type Adapter struct {
	client *http.Client
}

func New() *Adapter {
	return &Adapter{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) Provider() types.Provider {
	return types.ProviderDiscord
}

func (a *Adapter) Send(ctx context.Context, kind types.EventKind, data notify.MessageData, dest types.NotifierConfig) notify.SendResult {
	if dest.WebhookURL == "" {
		return notify.Rejected("missing discord webhook URL")
	}

	body, err := json.Marshal(BuildPayload(kind, data))
	if err != nil {
		return notify.Rejected(fmt.Sprintf("failed to marshal discord payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return notify.Rejected(fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return notify.TransportError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return notify.Rejected(fmt.Sprintf("discord webhook returned status %d", resp.StatusCode))
	}

	return notify.Delivered()
}

func (a *Adapter) SendTest(ctx context.Context, data notify.MessageData, dest types.NotifierConfig) error {
	res := a.Send(ctx, types.EventTest, data, dest)
	if res.State != notify.StateDelivered {
		return fmt.Errorf("discord test notification failed: %s", res.Detail)
	}
	return nil
}
