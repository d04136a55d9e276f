package notify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"wrappertest/internal/logger"
)

// maxContent is Discord's message limit in characters.
const maxContent = 2000

var ErrInvalidWebhookURL = errors.New("invalid discord webhook url")

// Summary is what gets reported once a run finishes.
type Summary struct {
	Total  int
	Passed int
	Failed []string
}

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts run summaries to a channel webhook.
type DiscordNotifier struct {
	session   webhookExecutor
	webhookID string
	token     string
}

// NewDiscordNotifier parses a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>. Webhooks need no bot token.
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	return &DiscordNotifier{
		session:   session,
		webhookID: id,
		token:     token,
	}, nil
}

func (d *DiscordNotifier) Notify(s Summary) error {
	_, err := d.session.WebhookExecute(d.webhookID, d.token, false, &discordgo.WebhookParams{
		Username: "wrapper smoke test",
		Content:  FormatSummary(s),
	})
	if err != nil {
		return fmt.Errorf("error posting summary to Discord: %w", err)
	}

	logger.Info("summary posted to Discord", zap.Int("passed", s.Passed), zap.Int("total", s.Total))
	return nil
}

func FormatSummary(s Summary) string {
	var b strings.Builder

	if len(s.Failed) == 0 {
		fmt.Fprintf(&b, "✅ Wrapper smoke test: %d/%d passed", s.Passed, s.Total)
	} else {
		fmt.Fprintf(&b, "⚠️ Wrapper smoke test: %d/%d passed, %d failed", s.Passed, s.Total, len(s.Failed))
		for _, name := range s.Failed {
			b.WriteString("\n• ")
			b.WriteString(name)
		}
	}

	out := []rune(b.String())
	if len(out) > maxContent {
		return string(out[:maxContent-3]) + "..."
	}
	return string(out)
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", ErrInvalidWebhookURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}

	return "", "", ErrInvalidWebhookURL
}
