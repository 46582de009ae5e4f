package notify

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/kilianp07/autoshutdown/core/orchestrator"
)

const telegramTextLimit = 4096

// TelegramConfig configures a TelegramNotifier.
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// APIURL overrides the Bot API endpoint.
	APIURL string `json:"api_url"`
}

// TelegramNotifier sends the plain text rendering of reports to a chat.
type TelegramNotifier struct {
	bot  *tele.Bot
	chat tele.ChatID
}

// NewTelegramNotifier creates a TelegramNotifier. The bot is created offline
// so no request is made until the first report.
func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chat: tele.ChatID(cfg.ChatID)}, nil
}

// Notify sends one message per report, split at the Bot API size limit.
func (t *TelegramNotifier) Notify(ctx context.Context, reports []orchestrator.Report) error {
	for _, r := range reports {
		for _, chunk := range splitText(Text(r), telegramTextLimit) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := t.bot.Send(t.chat, chunk, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
				return fmt.Errorf("send telegram message: %w", err)
			}
		}
	}
	return nil
}

// splitText cuts s into pieces of at most limit bytes, preferring line breaks.
func splitText(s string, limit int) []string {
	var out []string
	for len(s) > limit {
		cut := strings.LastIndex(s[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		out = append(out, s[:cut])
		s = strings.TrimPrefix(s[cut:], "\n")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
