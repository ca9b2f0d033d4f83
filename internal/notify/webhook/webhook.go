// Package webhook delivers notifications to generic HTTPS endpoints as a
// flat JSON document.
package webhook

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

type Payload struct {
	Kind             string `json:"kind"`
	Monitor          string `json:"monitor"`
	URL              string `json:"url"`
	Status           string `json:"status"`
	Region           string `json:"region"`
	Latency          string `json:"latency"`
	Time             string `json:"time"`
	Message          string `json:"message,omitempty"`
	IncidentDuration string `json:"incidentDuration,omitempty"`
	DashboardURL     string `json:"dashboardUrl"`
}

// BuildPayload is the pure half of the adapter contract.
func BuildPayload(kind types.EventKind, data notify.MessageData) Payload {
	return Payload{
		Kind:             string(kind),
		Monitor:          data.MonitorName,
		URL:              data.MonitorURL,
		Status:           data.Status,
		Region:           data.Region,
		Latency:          data.Latency,
		Time:             data.Timestamp,
		Message:          data.Message,
		IncidentDuration: data.IncidentDuration,
		DashboardURL:     data.DashboardURL,
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
	return types.ProviderWebhook
}

func (a *Adapter) Send(ctx context.Context, kind types.EventKind, data notify.MessageData, dest types.NotifierConfig) notify.SendResult {
	if dest.WebhookURL == "" {
		return notify.Rejected("missing webhook URL")
	}

	body, err := json.Marshal(BuildPayload(kind, data))
	if err != nil {
		return notify.Rejected(fmt.Sprintf("failed to marshal webhook payload: %v", err))
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
		return notify.Rejected(fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}

	return notify.Delivered()
}

func (a *Adapter) SendTest(ctx context.Context, data notify.MessageData, dest types.NotifierConfig) error {
	res := a.Send(ctx, types.EventTest, data, dest)
	if res.State != notify.StateDelivered {
		return fmt.Errorf("webhook test notification failed: %s", res.Detail)
	}
	return nil
}
