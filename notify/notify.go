/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package notify posts race outcome summaries to a Discord webhook so the
// operator hears about a 12:00:00 race without watching a terminal.
package notify

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/umbtools/umb-racebot/race"
)

// Reporter delivers outcome summaries to one Discord webhook.
type Reporter struct {
	session   *discordgo.Session
	webhookID string
	token     string
}

// NewReporter parses a Discord webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func NewReporter(webhookURL string) (*Reporter, error) {
	const marker = "/webhooks/"
	idx := strings.Index(webhookURL, marker)
	if idx == -1 {
		return nil, fmt.Errorf("notify: not a webhook URL: %s", webhookURL)
	}
	parts := strings.Split(strings.Trim(webhookURL[idx+len(marker):], "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("notify: not a webhook URL: %s", webhookURL)
	}

	// webhook execution needs no bot token
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: session init: %w", err)
	}

	return &Reporter{
		session:   session,
		webhookID: parts[0],
		token:     parts[1],
	}, nil
}

// Report posts one summary message for a completed race.
func (r *Reporter) Report(tournament string, outcomes []race.Outcome) error {
	_, err := r.session.WebhookExecute(r.webhookID, r.token, false,
		&discordgo.WebhookParams{
			Content: Summary(tournament, outcomes),
		})
	if err != nil {
		return fmt.Errorf("notify: webhook execute: %w", err)
	}
	return nil
}

// Summary renders the per-participant result lines plus a tally.
func Summary(tournament string, outcomes []race.Outcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Registration race: %s\n", tournament)
	for _, out := range outcomes {
		switch out.Status {
		case race.StatusSucceeded:
			fmt.Fprintf(&sb, "✅ %s (%s): registered — %s\n",
				out.Player, out.Kind, out.Ref)
		default:
			fmt.Fprintf(&sb, "❌ %s (%s): %s — %s\n",
				out.Player, out.Kind, out.Status, out.Reason)
		}
	}
	succeeded, total := race.Tally(outcomes)
	fmt.Fprintf(&sb, "%d/%d succeeded", succeeded, total)
	return sb.String()
}
