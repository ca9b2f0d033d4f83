// Package email delivers notifications via the Resend API. Test sends are
// not supported for this provider.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// BuildEmail is the pure half of the adapter contract.
func BuildEmail(kind types.EventKind, data notify.MessageData) (subject, html string) {
	switch kind {
	case types.EventAlert:
		subject = fmt.Sprintf("Alert: %s is down", data.MonitorName)
	case types.EventRecovery:
		subject = fmt.Sprintf("Recovered: %s is back up", data.MonitorName)
	case types.EventDegraded:
		subject = fmt.Sprintf("Degraded: %s is slow", data.MonitorName)
	default:
		subject = fmt.Sprintf("Test notification for %s", data.MonitorName)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "<h2>%s</h2>", subject)
	fmt.Fprintf(&sb, `<p><a href="%s">%s</a></p>`, data.MonitorURL, data.MonitorName)
	sb.WriteString("<ul>")
	fmt.Fprintf(&sb, "<li><strong>Status:</strong> %s</li>", data.Status)
	fmt.Fprintf(&sb, "<li><strong>Region:</strong> %s</li>", data.Region)
	fmt.Fprintf(&sb, "<li><strong>Latency:</strong> %s</li>", data.Latency)
	fmt.Fprintf(&sb, "<li><strong>Time:</strong> %s</li>", data.Timestamp)

	if data.IncidentDuration != "" && (kind == types.EventRecovery || kind == types.EventDegraded) {
		fmt.Fprintf(&sb, "<li><strong>Downtime duration:</strong> %s</li>", data.IncidentDuration)
	}

	sb.WriteString("</ul>")

	if data.Message != "" && kind == types.EventAlert {
		fmt.Fprintf(&sb, "<pre>%s</pre>", data.Message)
	}

	fmt.Fprintf(&sb, `<p><a href="%s">View Dashboard</a></p>`, data.DashboardURL)

	return subject, sb.String()
}

type Adapter struct {
	client *resend.Client
	from   string
}

// New builds the adapter. An empty API key yields an unconfigured adapter
// that rejects every send instead of failing startup.
func New(apiKey, from string) *Adapter {
	if apiKey == "" {
		return &Adapter{from: from}
	}
	return &Adapter{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (a *Adapter) Provider() types.Provider {
	return types.ProviderEmail
}

func (a *Adapter) Send(ctx context.Context, kind types.EventKind, data notify.MessageData, dest types.NotifierConfig) notify.SendResult {
	if a.client == nil {
		return notify.Rejected("email provider not configured")
	}
	if dest.Email == "" {
		return notify.Rejected("missing email address")
	}
	if err := ctx.Err(); err != nil {
		return notify.TransportError(err.Error())
	}

	subject, html := BuildEmail(kind, data)

	// SendWithContext so the dispatcher's per-call deadline aborts a hung
	// API call instead of blocking the whole dispatch.
	_, err := a.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    a.from,
		To:      []string{dest.Email},
		Subject: subject,
		Html:    html,
	})

	if err != nil {
		return notify.TransportError(err.Error())
	}

	return notify.Delivered()
}

// SendTest always fails: email has no test-send support in this design.
func (a *Adapter) SendTest(ctx context.Context, data notify.MessageData, dest types.NotifierConfig) error {
	return fmt.Errorf("email: %w", notify.ErrTestNotSupported)
}
