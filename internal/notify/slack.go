// Package notify implements the best-effort Slack notifier spec §7 calls
// for fatal operational failures (bus subscriber exceptions, transaction
// log write failures): a thin net/http POST to SLACK_WEBHOOK_URL whose own
// failure never affects the request or job it is reporting on, grounded on
// kugel_common/utils/slack_notifier.py.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// SlackNotifier posts a plain-text message to a Slack incoming webhook.
// A zero-value webhookURL makes every call a no-op, so wiring it
// unconditionally at every call site is safe whether or not
// SLACK_WEBHOOK_URL is configured.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier builds a SlackNotifier. webhookURL may be empty.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, client: &http.Client{Timeout: 5 * time.Second}}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Notify posts text to the configured webhook. It never returns an error
// to the caller by design: failures are logged and swallowed, matching
// spec §7's "the notifier is best-effort and its failure never affects
// request outcome".
func (n *SlackNotifier) Notify(ctx context.Context, text string) {
	if n == nil || n.webhookURL == "" {
		return
	}
	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to encode slack payload")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to build slack request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("notify: slack webhook call failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Msg("notify: slack webhook returned non-2xx")
	}
}

// NotifyFatal is a convenience wrapper for spec §7's two named fatal
// cases: bus-subscriber exceptions and transaction-log write failures.
func (n *SlackNotifier) NotifyFatal(ctx context.Context, component string, err error) {
	n.Notify(ctx, "["+component+"] fatal operational failure: "+err.Error())
}
