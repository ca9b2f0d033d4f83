// Package telegram delivers notifications to Telegram chats through a bot.
// The chat id is obtained via a pairing flow elsewhere and arrives here
// already resolved.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// BuildText is the pure half of the adapter contract: a Markdown message.
func BuildText(kind types.EventKind, data notify.MessageData) string {
	var sb strings.Builder

	switch kind {
	case types.EventAlert:
		sb.WriteString("🚨 *Alert*\n")
	case types.EventRecovery:
		sb.WriteString("✅ *Recovered*\n")
	case types.EventDegraded:
		sb.WriteString("⚠️ *Degraded*\n")
	default:
		sb.WriteString("🧪 *Test*\n")
	}

	fmt.Fprintf(&sb, "[%s](%s)\n\n", data.MonitorName, data.MonitorURL)
	fmt.Fprintf(&sb, "*Status:* %s\n", data.Status)
	fmt.Fprintf(&sb, "*Region:* %s\n", data.Region)
	fmt.Fprintf(&sb, "*Latency:* %s\n", data.Latency)
	fmt.Fprintf(&sb, "*Time:* %s\n", data.Timestamp)

	if data.IncidentDuration != "" && (kind == types.EventRecovery || kind == types.EventDegraded) {
		fmt.Fprintf(&sb, "*Downtime duration:* %s\n", data.IncidentDuration)
	}

	if data.Message != "" && kind == types.EventAlert {
		fmt.Fprintf(&sb, "\n```\n%s\n```\n", data.Message)
	}

	fmt.Fprintf(&sb, "\n[View Dashboard](%s)", data.DashboardURL)

	return sb.String()
}

type Adapter struct {
	bot *tele.Bot
}

// New connects the bot. An empty token yields an unconfigured adapter that
// rejects every send instead of failing startup.
func New(token string) (*Adapter, error) {
	if strings.TrimSpace(token) == "" {
		return &Adapter{}, nil
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Adapter{bot: bot}, nil
}

func (a *Adapter) Provider() types.Provider {
	return types.ProviderTelegram
}

func (a *Adapter) Send(ctx context.Context, kind types.EventKind, data notify.MessageData, dest types.NotifierConfig) notify.SendResult {
	if a.bot == nil {
		return notify.Rejected("telegram bot not configured")
	}
	if dest.ChatID == 0 {
		return notify.Rejected("missing telegram chat id")
	}
	if err := ctx.Err(); err != nil {
		return notify.TransportError(err.Error())
	}

	// telebot's Send takes no context, so run it in a goroutine and give up
	// when the dispatcher's deadline fires. The bot's HTTP client has its
	// own timeout, so an abandoned call still terminates.
	errCh := make(chan error, 1)
	go func() {
		_, err := a.bot.Send(tele.ChatID(dest.ChatID), BuildText(kind, data), &tele.SendOptions{
			ParseMode:             tele.ModeMarkdown,
			DisableWebPagePreview: true,
		})
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		return notify.TransportError(ctx.Err().Error())
	case err := <-errCh:
		if err != nil {
			return notify.TransportError(err.Error())
		}
		return notify.Delivered()
	}
}

func (a *Adapter) SendTest(ctx context.Context, data notify.MessageData, dest types.NotifierConfig) error {
	res := a.Send(ctx, types.EventTest, data, dest)
	if res.State != notify.StateDelivered {
		return fmt.Errorf("telegram test notification failed: %s", res.Detail)
	}
	return nil
}
