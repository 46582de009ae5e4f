package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/kilianp07/autoshutdown/core/orchestrator"
)

const (
	colorChanged  = "#36a64f"
	colorSimulate = "#439fe0"
	colorFailed   = "#d00000"
)

// SlackConfig configures a SlackNotifier.
type SlackConfig struct {
	WebhookURL string        `json:"webhook_url"`
	Channel    string        `json:"channel"`
	Username   string        `json:"username"`
	IconEmoji  string        `json:"icon_emoji"`
	Timeout    time.Duration `json:"timeout"`
}

// SlackNotifier posts one message per run to an incoming webhook, with one
// attachment per subscription report.
type SlackNotifier struct {
	cfg    SlackConfig
	client *http.Client
}

// NewSlackNotifier creates a SlackNotifier.
func NewSlackNotifier(cfg SlackConfig) *SlackNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SlackNotifier{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Notify posts the reports.
func (s *SlackNotifier) Notify(ctx context.Context, reports []orchestrator.Report) error {
	if len(reports) == 0 {
		return nil
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.cfg.WebhookURL, s.client, s.message(reports)); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

func (s *SlackNotifier) message(reports []orchestrator.Report) *slack.WebhookMessage {
	msg := &slack.WebhookMessage{
		Channel:   s.cfg.Channel,
		Username:  s.cfg.Username,
		IconEmoji: s.cfg.IconEmoji,
	}
	for _, r := range reports {
		msg.Attachments = append(msg.Attachments, attachment(r))
	}
	return msg
}

func attachment(r orchestrator.Report) slack.Attachment {
	color := colorChanged
	if r.Simulate {
		color = colorSimulate
	}
	if len(r.Failed) > 0 {
		color = colorFailed
	}
	fields := []slack.AttachmentField{
		{Title: "Tagged machines", Value: strconv.Itoa(r.TaggedCount), Short: true},
		{Title: "Untagged machines", Value: strconv.Itoa(r.UntaggedCount), Short: true},
		{Title: "Started", Value: names(r.Started)},
		{Title: "Stopped", Value: names(r.Stopped)},
	}
	if len(r.Failed) > 0 {
		lines := make([]string, 0, len(r.Failed))
		for _, f := range r.Failed {
			lines = append(lines, fmt.Sprintf("%s (%s): %s", f.Machine.Name, f.Action, f.Error))
		}
		fields = append(fields, slack.AttachmentField{Title: "Failed", Value: strings.Join(lines, "\n")})
	}
	if len(r.Pending) > 0 {
		fields = append(fields, slack.AttachmentField{Title: "Still running", Value: names(r.Pending)})
	}
	pretext := fmt.Sprintf("*%s*", r.SubscriptionName)
	if r.Simulate {
		pretext += " _(simulation, nothing was changed)_"
	}
	return slack.Attachment{
		Fallback:   Text(r),
		Color:      color,
		Pretext:    pretext,
		Title:      Title(r),
		Text:       fmt.Sprintf("%d started, %d stopped", len(r.Started), len(r.Stopped)),
		Fields:     fields,
		MarkdownIn: []string{"text", "pretext"},
		Footer:     "run " + r.RunID,
		Ts:         json.Number(strconv.FormatInt(r.GeneratedAt.Unix(), 10)),
	}
}
