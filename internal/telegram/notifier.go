package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Sender is the part of tgbotapi.BotAPI used for outgoing messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotifierOptions holds options for creating a Notifier
type NotifierOptions struct {
	MessagesPerSec int
	MaxRetries     uint64
	RetryInterval  time.Duration
	MaxElapsed     time.Duration
}

// Notifier sends text messages under the bot API rate limit.
type Notifier struct {
	sender     Sender
	limiter    *rate.Limiter
	maxRetries uint64
	interval   time.Duration
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// NewNotifier creates a notifier. Telegram allows about 30 messages per
// second per bot, so that is the default.
func NewNotifier(sender Sender, opts NotifierOptions) *Notifier {
	if opts.MessagesPerSec <= 0 {
		opts.MessagesPerSec = 30
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.MaxElapsed == 0 {
		opts.MaxElapsed = 30 * time.Second
	}
	return &Notifier{
		sender:     sender,
		limiter:    rate.NewLimiter(rate.Limit(opts.MessagesPerSec), 1),
		maxRetries: opts.MaxRetries,
		interval:   opts.RetryInterval,
		maxElapsed: opts.MaxElapsed,
		logger:     log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Send delivers text to a chat. Rejections by the API (blocked bot,
// unknown chat) are not retried; throttling and network errors are.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	operation := func() error {
		if err := n.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		_, err := n.sender.Send(msg)
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code != http.StatusTooManyRequests && apiErr.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = n.interval
	exp.MaxElapsedTime = n.maxElapsed
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, n.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		n.logger.Warn().Err(err).Int64("chat_id", chatID).Dur("retry_in", wait).Msg("Send failed, retrying")
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("sending message to chat %d: %w", chatID, err)
	}
	return nil
}
