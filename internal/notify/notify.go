// Package notify delivers bot messages to the configured Telegram chat.
package notify

import (
	"context"
	"fmt"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// SendError is returned when the Bot API rejects or fails a delivery.
type SendError struct {
	Text string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("Ошибка \"%v\" при отправке сообщения :\n\"%s\"", e.Err, e.Text)
}

func (e *SendError) Unwrap() error { return e.Err }

// MessageSender is the part of *gotgbot.Bot the notifier needs.
type MessageSender interface {
	SendMessageWithContext(ctx context.Context, chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

type Telegram struct {
	Sender  MessageSender
	ChatID  int64
	Limiter *rate.Limiter
	Log     zerolog.Logger
}

// NewTelegram returns a notifier sending at most ratePerSec messages per
// second to chatID.
func NewTelegram(sender MessageSender, chatID int64, ratePerSec int, log zerolog.Logger) *Telegram {
	rps := max(1, ratePerSec)
	return &Telegram{
		Sender:  sender,
		ChatID:  chatID,
		Limiter: rate.NewLimiter(rate.Limit(rps), rps),
		Log:     log,
	}
}

// Notify sends text to the chat. Failures are logged here and returned as
// *SendError.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	t.Log.Debug().Msg("sending message")

	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return t.fail(text, err)
		}
	}

	opts := &gotgbot.SendMessageOpts{
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{
			IsDisabled: true,
		},
	}
	if _, err := t.Sender.SendMessageWithContext(ctx, t.ChatID, text, opts); err != nil {
		return t.fail(text, err)
	}

	t.Log.Debug().Msgf("Сообщение отправлено: \"%s\"", text)
	return nil
}

func (t *Telegram) fail(text string, err error) error {
	sendErr := &SendError{Text: text, Err: err}
	t.Log.Error().Err(err).Str("text", text).Msg(sendErr.Error())
	return sendErr
}
