// Package poller consumes order events and clears the shopper's cart.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CartClearer clears a cart unless it changed after the order was placed.
type CartClearer interface {
	ClearCartPlacedBefore(ctx context.Context, userID string, placedAt time.Time) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var errMalformed = errors.New("malformed order event")

type Poller struct {
	reader     messageReader
	carts      CartClearer
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func NewPoller(carts CartClearer, topic, groupID string, log *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(reader, carts, log)
}

func newPoller(r messageReader, carts CartClearer, log *zap.Logger) *Poller {
	return &Poller{
		reader:     r,
		carts:      carts,
		log:        log,
		maxRetries: 5,
		backoff:    500 * time.Millisecond,
	}
}

// Run fetches messages until ctx is cancelled. Each message is committed
// after it was handled or given up on.
func (p *Poller) Run(ctx context.Context) error {
	for {
		m, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("fetch message failed", zap.Error(err))
			if !sleep(ctx, p.backoff) {
				return nil
			}
			continue
		}

		p.handleWithRetry(ctx, m)

		if err := p.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			p.log.Error("commit message failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (p *Poller) Close() error {
	return p.reader.Close()
}

func (p *Poller) handleWithRetry(ctx context.Context, m kafka.Message) {
	delay := p.backoff
	for attempt := 1; ; attempt++ {
		err := p.handle(ctx, m)
		if err == nil {
			return
		}
		if errors.Is(err, errMalformed) || attempt >= p.maxRetries {
			p.log.Error("dropping order event",
				zap.Int64("offset", m.Offset),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}
		p.log.Warn("order event handling failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if !sleep(ctx, delay) {
			return
		}
		delay *= 2
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	if t := header(m, "event_type"); t != "" && t != domain.EventTypeOrderPlaced {
		return nil
	}

	var ev domain.OrderPlaced
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.UserID == "" {
		return fmt.Errorf("%w: missing user_id", errMalformed)
	}

	if err := p.carts.ClearCartPlacedBefore(ctx, ev.UserID, ev.PlacedAt); err != nil {
		return fmt.Errorf("clear cart for %s: %w", ev.UserID, err)
	}
	p.log.Debug("cart cleared after order",
		zap.String("user_id", ev.UserID),
		zap.String("order_id", ev.OrderID.String()))
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
