package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
)

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_ClearsCartFromPublishedEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}

	broker := setupKafka(t)
	topic := "order-placed"
	createTopic(t, broker, topic)

	pub := publisher.NewKafkaPublisher(topic, zap.NewNop(), broker)
	defer pub.Close()

	clearer := &mockClearer{}
	p := NewPoller(clearer, topic, "storefront-test", zap.NewNop(), broker)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	order := &domain.Order{ID: uuid.New(), UserID: "123", CreatedAt: time.Now().UTC()}
	require.NoError(t, pub.PublishOrderPlaced(ctx, order))

	require.Eventually(t, func() bool {
		return clearer.callCount() == 1
	}, 30*time.Second, 500*time.Millisecond)
}
