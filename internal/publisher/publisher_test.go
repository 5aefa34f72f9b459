package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:             uuid.New(),
		UserID:         "u1",
		IdempotencyKey: "key-1",
		Currency:       "INR",
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		Breakdown: domain.Breakdown{GrandTotal: decimal.RequireFromString("114.967")},
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishOrderPlaced(t *testing.T) {
	w := &mockWriter{}
	p := newPublisher(w, zap.NewNop())
	order := testOrder()

	require.NoError(t, p.PublishOrderPlaced(context.Background(), order))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, domain.EventTypeOrderPlaced, string(msg.Headers[0].Value))

	var ev domain.OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, order.ID, ev.OrderID)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, 3, ev.ItemCount)
	assert.Equal(t, "114.97", ev.GrandTotal.String())
	assert.True(t, order.CreatedAt.Equal(ev.PlacedAt))
}

func TestPublishOrderPlaced_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker down")}
	p := newPublisher(w, zap.NewNop())

	err := p.PublishOrderPlaced(context.Background(), testOrder())
	assert.ErrorContains(t, err, "broker down")
}

func TestClose(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, newPublisher(w, zap.NewNop()).Close())
	assert.True(t, w.closed)
}
