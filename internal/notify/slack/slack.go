// Package slack delivers notifications to Slack Incoming Webhooks using
// Block Kit attachments.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

const (
	ColorAlert    = "#ED4245"
	ColorDegraded = "#FEE75C"
	ColorRecovery = "#57F287"
)

type Payload struct {
	Attachments []Attachment `json:"attachments"`
}

type Attachment struct {
	Color  string  `json:"color"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type     string   `json:"type"`
	Text     *Text    `json:"text,omitempty"`
	Fields   []Text   `json:"fields,omitempty"`
	Elements []Button `json:"elements,omitempty"`
}

type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type Button struct {
	Type string `json:"type"`
	Text Text   `json:"text"`
	URL  string `json:"url"`
}

// mrkdwnEscaper escapes the three characters Slack's mrkdwn treats as
// control characters. Applied to monitor name and error message only.
var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func Escape(s string) string {
	return mrkdwnEscaper.Replace(s)
}

func header(text string) Block {
	return Block{Type: "header", Text: &Text{Type: "plain_text", Text: text, Emoji: true}}
}

func section(mrkdwn string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: mrkdwn}}
}

func divider() Block {
	return Block{Type: "divider"}
}

func fieldGrid(data notify.MessageData) Block {
	return Block{
		Type: "section",
		Fields: []Text{
			{Type: "mrkdwn", Text: "*Status:*\n" + data.Status},
			{Type: "mrkdwn", Text: "*Region:*\n" + data.Region},
			{Type: "mrkdwn", Text: "*Latency:*\n" + data.Latency},
			{Type: "mrkdwn", Text: "*Time:*\n" + data.Timestamp},
		},
	}
}

func actions(data notify.MessageData) Block {
	return Block{
		Type: "actions",
		Elements: []Button{
			{
				Type: "button",
				Text: Text{Type: "plain_text", Text: "View Dashboard", Emoji: true},
				URL:  data.DashboardURL,
			},
		},
	}
}

func monitorLink(data notify.MessageData) Block {
	return section(fmt.Sprintf("*<%s|%s>*", data.MonitorURL, Escape(data.MonitorName)))
}

// BuildAlertBlocks renders the payload for an alert event: red border,
// header, monitor link, field grid, the escaped error message in a fenced
// code span, and a dashboard button.
func BuildAlertBlocks(data notify.MessageData) Payload {
	blocks := []Block{
		header("🚨 Alert"),
		monitorLink(data),
		divider(),
		fieldGrid(data),
	}

	if data.Message != "" {
		blocks = append(blocks, section("```"+Escape(data.Message)+"```"))
	}

	blocks = append(blocks, actions(data))

	return Payload{Attachments: []Attachment{{Color: ColorAlert, Blocks: blocks}}}
}

// BuildRecoveryBlocks renders the payload for a recovery event. The
// downtime duration section is present iff a duration was supplied.
func BuildRecoveryBlocks(data notify.MessageData) Payload {
	blocks := []Block{
		header("✅ Recovered"),
		monitorLink(data),
	}

	if data.IncidentDuration != "" {
		blocks = append(blocks, divider(), section("*Downtime duration:* "+data.IncidentDuration))
	}

	blocks = append(blocks, divider(), fieldGrid(data), actions(data))

	return Payload{Attachments: []Attachment{{Color: ColorRecovery, Blocks: blocks}}}
}

// BuildDegradedBlocks renders the payload for a degraded event. The
// previous-duration section is present iff a duration was supplied.
func BuildDegradedBlocks(data notify.MessageData) Payload {
	blocks := []Block{
		header("⚠️ Degraded"),
		monitorLink(data),
	}

	if data.IncidentDuration != "" {
		blocks = append(blocks, divider(), section("*Previous duration:* "+data.IncidentDuration))
	}

	blocks = append(blocks, divider(), fieldGrid(data), actions(data))

	return Payload{Attachments: []Attachment{{Color: ColorDegraded, Blocks: blocks}}}
}

func BuildTestBlocks(data notify.MessageData) Payload {
	blocks := []Block{
		header("🧪 Test"),
		monitorLink(data),
		divider(),
		fieldGrid(data),
		actions(data),
	}

	return Payload{Attachments: []Attachment{{Color: ColorRecovery, Blocks: blocks}}}
}

// BuildPayload is the pure half of the adapter contract.
func BuildPayload(kind types.EventKind, data notify.MessageData) Payload {
	switch kind {
	case types.EventAlert:
		return BuildAlertBlocks(data)
	case types.EventRecovery:
		return BuildRecoveryBlocks(data)
	case types.EventDegraded:
		return BuildDegradedBlocks(data)
	default:
		return BuildTestBlocks(data)
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
	return types.ProviderSlack
}

func (a *Adapter) Send(ctx context.Context, kind types.EventKind, data notify.MessageData, dest types.NotifierConfig) notify.SendResult {
	if dest.WebhookURL == "" {
		return notify.Rejected("missing slack webhook URL")
	}

	body, err := json.Marshal(BuildPayload(kind, data))
	if err != nil {
		return notify.Rejected(fmt.Sprintf("failed to marshal slack payload: %v", err))
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
		return notify.Rejected(fmt.Sprintf("slack webhook returned status %d", resp.StatusCode))
	}

	return notify.Delivered()
}

func (a *Adapter) SendTest(ctx context.Context, data notify.MessageData, dest types.NotifierConfig) error {
	res := a.Send(ctx, types.EventTest, data, dest)
	if res.State != notify.StateDelivered {
		return fmt.Errorf("slack test notification failed: %s", res.Detail)
	}
	return nil
}
