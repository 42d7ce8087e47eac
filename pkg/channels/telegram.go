package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"
)

// telegramChannel delivers push-messages through a Telegram bot.
type telegramChannel struct {
	id     string
	typ    string
	chatID int64
	bot    *tele.Bot
	log    Logger
}

// newTelegramChannel builds the channel. The bot is constructed offline so
// that misconfiguration, not network state, decides whether the build fails.
func newTelegramChannel(_ context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.Telegram == nil {
		return nil, fmt.Errorf("channel %q missing telegram configuration", cfg.ID)
	}
	chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("channel %q telegram chat_id: %w", cfg.ID, err)
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Offline: true,
		Client:  &http.Client{Timeout: 15 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}

	return &telegramChannel{
		id:     cfg.ID,
		typ:    TypeTelegram,
		chatID: chatID,
		bot:    bot,
		log:    ensureLogger(log),
	}, nil
}

func (t *telegramChannel) ID() string   { return t.id }
func (t *telegramChannel) Type() string { return t.typ }

// Send delivers the message body to the configured chat.
func (t *telegramChannel) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sent, err := t.bot.Send(&tele.Chat{ID: t.chatID}, msg.Body, &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		t.log.WarnObj("telegram send failed", "channel_telegram_error", map[string]any{
			"channel_id": t.id,
			"error":      err.Error(),
		})
		return "", classifyTelegramErr(err)
	}

	t.log.DebugObj("telegram channel delivered message", "channel_telegram_delivery", map[string]any{
		"channel_id": t.id,
	})
	return strconv.Itoa(sent.ID), nil
}

// classifyTelegramErr maps telebot errors onto the retryability taxonomy.
// Flood control and server-side errors are transient; rejected tokens and
// unknown chats will not heal within a run.
func classifyTelegramErr(err error) error {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return transientf("telegram flood control (retry after %ds)", flood.RetryAfter)
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return terminalf("telegram api error %d: %s", apiErr.Code, apiErr.Description)
		}
		return transientf("telegram api error %d: %s", apiErr.Code, apiErr.Description)
	}
	return transientf("telegram send: %v", err)
}
