package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/infrastructure/metrics"
)

// Delivery sends a sequence to one recipient strictly in order, pausing
// for the typing delay before every content message. All platform calls
// share one rate limiter.
type Delivery struct {
	messenger Messenger
	typing    time.Duration
	limiter   *rate.Limiter
	wait      func(ctx context.Context, d time.Duration) error
}

// NewDelivery builds a Delivery. perSecond caps platform calls across all
// recipients; zero means unlimited.
func NewDelivery(m Messenger, typing time.Duration, perSecond float64) *Delivery {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Delivery{messenger: m, typing: typing, limiter: limiter, wait: sleep}
}

// Deliver sends seq. It stops at the first failure and reports how many
// items went out.
func (d *Delivery) Deliver(ctx context.Context, recipientID string, seq []dialogue.Outbound, mt dialogue.MessagingType) (int, error) {
	pending := seq
	sent := 0
	for len(pending) > 0 {
		item := pending[0]
		if !item.IsTyping() && d.typing > 0 {
			if err := d.wait(ctx, d.typing); err != nil {
				return sent, err
			}
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		if _, err := d.messenger.Send(ctx, recipientID, item, mt); err != nil {
			return sent, fmt.Errorf("deliver item %d of %d: %w", sent+1, len(seq), err)
		}
		if !item.IsTyping() {
			metrics.MessagesSent.WithLabelValues(string(mt)).Inc()
		}
		pending = pending[1:]
		sent++
	}
	return sent, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// invalidRecipient reports whether err says the recipient can no longer
// be reached.
func invalidRecipient(err error) bool {
	var re recipientError
	return errors.As(err, &re) && re.InvalidRecipient()
}

func failureClass(err error) string {
	if invalidRecipient(err) {
		return "invalid_recipient"
	}
	return "transient"
}
