// Package sms delivers short text notifications through an external SMS
// gateway. Test sends are not supported for this provider.
package sms

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

// Gateway abstracts the out-of-process SMS sender.
type Gateway interface {
	Send(ctx context.Context, to, body string) error
}

// HTTPGateway posts {"to": ..., "body": ...} to a configured endpoint.
type HTTPGateway struct {
	url    string
	client *http.Client
}

func NewHTTPGateway(url string) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *HTTPGateway) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(map[string]string{"to": to, "body": body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	return nil
}

// BuildText is the pure half of the adapter contract. SMS bodies are short:
// one line, no markup, no dashboard link.
func BuildText(kind types.EventKind, data notify.MessageData) string {
	switch kind {
	case types.EventAlert:
		return fmt.Sprintf("%s is down (%s, %s)", data.MonitorName, data.Status, data.Region)
	case types.EventRecovery:
		if data.IncidentDuration != "" {
			return fmt.Sprintf("%s recovered after %s", data.MonitorName, data.IncidentDuration)
		}
		return fmt.Sprintf("%s recovered", data.MonitorName)
	case types.EventDegraded:
		return fmt.Sprintf("%s is degraded (%s latency, %s)", data.MonitorName, data.Latency, data.Region)
	default:
		return fmt.Sprintf("Test notification for %s", data.MonitorName)
	}
}

type Adapter struct {
	gateway Gateway
}

func New(gateway Gateway) *Adapter {
	return &Adapter{gateway: gateway}
}

func (a *Adapter) Provider() types.Provider {
	return types.ProviderSMS
}

func (a *Adapter) Send(ctx context.Context, kind types.EventKind, data notify.MessageData, dest types.NotifierConfig) notify.SendResult {
	if a.gateway == nil {
		return notify.Rejected("sms gateway not configured")
	}
	if dest.PhoneNumber == "" {
		return notify.Rejected("missing phone number")
	}

	if err := a.gateway.Send(ctx, dest.PhoneNumber, BuildText(kind, data)); err != nil {
		return notify.TransportError(err.Error())
	}

	return notify.Delivered()
}

// SendTest always fails: SMS has no test-send support in this design.
func (a *Adapter) SendTest(ctx context.Context, data notify.MessageData, dest types.NotifierConfig) error {
	return fmt.Errorf("sms: %w", notify.ErrTestNotSupported)
}
