package notify

import (
	"fmt"

	"github.com/kilianp07/autoshutdown/core/factory"
	corenotify "github.com/kilianp07/autoshutdown/core/notify"
	"github.com/kilianp07/autoshutdown/infra/mqtt"
)

// init registers built-in notifiers.
func init() {
	_ = corenotify.Register("log", func(map[string]any) (corenotify.Notifier, error) {
		return NewLogNotifier(nil), nil
	})

	_ = corenotify.Register("slack", func(conf map[string]any) (corenotify.Notifier, error) {
		var c SlackConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.WebhookURL == "" {
			return nil, fmt.Errorf("webhook_url not set: %w", corenotify.ErrDisabled)
		}
		return NewSlackNotifier(c), nil
	})

	_ = corenotify.Register("telegram", func(conf map[string]any) (corenotify.Notifier, error) {
		var c TelegramConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Token == "" || c.ChatID == 0 {
			return nil, fmt.Errorf("token or chat_id not set: %w", corenotify.ErrDisabled)
		}
		return NewTelegramNotifier(c)
	})

	_ = corenotify.Register("mqtt", func(conf map[string]any) (corenotify.Notifier, error) {
		var c mqtt.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		var t struct {
			TopicPrefix string `json:"topic_prefix"`
		}
		if err := factory.Decode(conf, &t); err != nil {
			return nil, err
		}
		if c.Broker == "" {
			return nil, fmt.Errorf("broker not set: %w", corenotify.ErrDisabled)
		}
		cli, err := mqtt.NewPahoClient(c)
		if err != nil {
			return nil, err
		}
		return NewMQTTNotifier(cli, t.TopicPrefix), nil
	})
}
