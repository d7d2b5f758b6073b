package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// Embed colors, decimal RGB as Discord expects.
const (
	colorGreen   = 0x2ecc71 // completed acquisitions, resolved claims
	colorRed     = 0xe74c3c // failed or cancelled offers, deleted claims
	colorAmber   = 0xf39c12 // open claims and pending offers
	colorNeutral = 0x95a5a6
)

// DiscordSender delivers notifications via a Discord webhook, rendering each
// message as a single embed with one field per detail line.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses a
// default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts the message to the Discord webhook as an embed colored by
// outcome.
func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	embed := discordEmbed{
		Title: msg.Headline,
		Color: embedColor(msg.Kind),
	}
	for _, detail := range msg.Details {
		embed.Fields = append(embed.Fields, discordField{
			Name:   detail.Label,
			Value:  detail.Value,
			Inline: true,
		})
	}

	payload := map[string]any{
		"embeds": []discordEmbed{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

func embedColor(kind domain.EventKind) int {
	switch kind {
	case domain.EventOfferCompleted, domain.EventClaimResolved, domain.EventMigrated:
		return colorGreen
	case domain.EventOfferFailed, domain.EventOfferCancelled, domain.EventClaimDeleted:
		return colorRed
	case domain.EventClaimDeclared, domain.EventClaimPrepared, domain.EventOfferCreated, domain.EventOfferReplaced:
		return colorAmber
	default:
		return colorNeutral
	}
}
