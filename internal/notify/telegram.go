// Package notify announces items newly merged into the feed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedkeeper/internal/model"
	"feedkeeper/internal/sanitize"
)

// maxDescription is the number of runes of a description kept in a message.
const maxDescription = 280

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts one message per item to a single chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
	pause  time.Duration
}

// NewTelegram creates a notifier for the bot token and chat.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{
		api:    api,
		chatID: chatID,
		log:    log,
		// Telegram allows about 20 messages per second.
		pause: 50 * time.Millisecond,
	}, nil
}

// Notify sends items in order. A failed message does not stop the rest; the
// failures are returned together.
func (t *Telegram) Notify(ctx context.Context, items []model.FeedItem) error {
	var errs []error
	sent := 0
	for i, item := range items {
		if i > 0 && t.pause > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(append(errs, ctx.Err())...)
			case <-time.After(t.pause):
			}
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		msg := tgbotapi.NewMessage(t.chatID, FormatNotification(item))
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			t.log.Error("send notification", "chat_id", t.chatID, "link", item.Link, "error", err)
			errs = append(errs, fmt.Errorf("send %q: %w", item.Title, err))
			continue
		}
		sent++
	}
	if sent > 0 {
		t.log.Info("sent notifications", "chat_id", t.chatID, "count", sent)
	}
	return errors.Join(errs...)
}

// FormatNotification formats a feed item as a plain-text message. Markup is
// removed from the description and long descriptions are shortened.
func FormatNotification(item model.FeedItem) string {
	var b strings.Builder
	if item.Source != "" {
		fmt.Fprintf(&b, "[%s]\n\n", item.Source)
	}
	b.WriteString(item.Title)

	desc := html.UnescapeString(sanitize.StripHTMLTags(item.Description))
	desc = strings.TrimSpace(sanitize.NormalizeWhitespace(desc))
	if desc != "" {
		b.WriteString("\n\n")
		b.WriteString(truncate(desc, maxDescription))
	}
	if item.Link != "" {
		b.WriteString("\n\n")
		b.WriteString(item.Link)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
