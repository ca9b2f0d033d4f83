package types

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// Provider identifies a notification channel kind.
type Provider string

const (
	ProviderSlack    Provider = "slack"
	ProviderDiscord  Provider = "discord"
	ProviderTelegram Provider = "telegram"
	ProviderEmail    Provider = "email"
	ProviderSMS      Provider = "sms"
	ProviderWebhook  Provider = "webhook"
)

func ValidProvider(p Provider) bool {
	switch p {
	case ProviderSlack, ProviderDiscord, ProviderTelegram, ProviderEmail, ProviderSMS, ProviderWebhook:
		return true
	}
	return false
}

// NotifierConfig is the decoded destination of a notifier. Exactly one field
// is populated, determined by the provider kind.
type NotifierConfig struct {
	Email       string
	WebhookURL  string
	ChatID      int64
	PhoneNumber string
}

// ParseNotifierConfig decodes the persisted config blob for a notifier. The
// blob is a JSON object keyed by the provider name, e.g.
// {"slack": "https://hooks.slack.com/..."} or {"email": "ops@example.com"}.
// A blob whose key does not match the provider kind is a client error, never
// coerced.
func ParseNotifierConfig(provider Provider, raw []byte) (NotifierConfig, error) {
	var blob map[string]json.RawMessage

	if err := json.Unmarshal(raw, &blob); err != nil {
		return NotifierConfig{}, fmt.Errorf("invalid notifier config: %w", err)
	}

	value, ok := blob[string(provider)]

	if !ok || len(blob) != 1 {
		return NotifierConfig{}, fmt.Errorf("Expected %s data", provider)
	}

	var data string
	if err := json.Unmarshal(value, &data); err != nil {
		return NotifierConfig{}, fmt.Errorf("Expected %s data", provider)
	}

	return buildNotifierConfig(provider, data)
}

func buildNotifierConfig(provider Provider, data string) (NotifierConfig, error) {
	data = strings.TrimSpace(data)

	if data == "" {
		return NotifierConfig{}, fmt.Errorf("Expected %s data", provider)
	}

	switch provider {
	case ProviderEmail:
		if _, err := mail.ParseAddress(data); err != nil {
			return NotifierConfig{}, fmt.Errorf("invalid email address: %s", data)
		}
		return NotifierConfig{Email: data}, nil
	case ProviderSlack, ProviderDiscord, ProviderWebhook:
		if !strings.HasPrefix(data, "http://") && !strings.HasPrefix(data, "https://") {
			return NotifierConfig{}, fmt.Errorf("invalid webhook URL: %s", data)
		}
		return NotifierConfig{WebhookURL: data}, nil
	case ProviderTelegram:
		chatID, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			return NotifierConfig{}, fmt.Errorf("invalid telegram chat id: %s", data)
		}
		return NotifierConfig{ChatID: chatID}, nil
	case ProviderSMS:
		if !strings.HasPrefix(data, "+") || len(data) < 8 || len(data) > 16 {
			return NotifierConfig{}, fmt.Errorf("invalid E.164 phone number: %s", data)
		}
		for _, c := range data[1:] {
			if c < '0' || c > '9' {
				return NotifierConfig{}, fmt.Errorf("invalid E.164 phone number: %s", data)
			}
		}
		return NotifierConfig{PhoneNumber: data}, nil
	}

	return NotifierConfig{}, fmt.Errorf("unsupported provider: %s", provider)
}
