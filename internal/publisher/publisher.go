// Package publisher writes order events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *zap.Logger
}

func NewKafkaPublisher(topic string, log *zap.Logger, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log *zap.Logger) *Publisher {
	return &Publisher{writer: w, timeout: 5 * time.Second, log: log}
}

// PublishOrderPlaced writes the order-placed event keyed by user id, so all
// events of one shopper land on the same partition in order.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderPlaced(order))
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventTypeOrderPlaced)},
			{Key: "order_id", Value: []byte(order.ID.String())},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", order.ID, err)
	}

	p.log.Debug("order placed event published", zap.String("order_id", order.ID.String()))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
