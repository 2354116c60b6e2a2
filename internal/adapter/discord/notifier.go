// Package discord implements the chat sink port for Discord incoming webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Strob0t/SwarmPilot/internal/port/notifier"
)

const providerName = "discord"

// maxDescriptionChars bounds the embed description; coordination notices
// are short by contract, this is the backstop. Discord caps embeds at 4096.
const maxDescriptionChars = 2000

// Notice levels map to embed sidebar colors so a channel scroll reads at a
// glance. Unknown levels fall back to info blue.
var embedColors = map[string]int{
	"success": 0x2ECC71,
	"error":   0xE74C3C,
	"warning": 0xF39C12,
	"info":    0x3498DB,
}

// Notifier sends coordination notices to Discord via incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Discord notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: http.DefaultClient,
	}
}

func (n *Notifier) Name() string { return providerName }

// webhookBody is the embed-form webhook payload.
type webhookBody struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func buildEmbed(notification notifier.Notification) embed {
	text := notification.Message
	if len(text) > maxDescriptionChars {
		text = text[:maxDescriptionChars] + "..."
	}

	color, ok := embedColors[notification.Level]
	if !ok {
		color = embedColors["info"]
	}

	e := embed{
		Description: text,
		Color:       color,
	}
	if notification.Source != "" {
		e.Footer = &embedFooter{Text: notification.Source}
	}
	return e
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(webhookBody{
		Embeds: []embed{buildEmbed(notification)},
	})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord answers webhook posts with 204.
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
