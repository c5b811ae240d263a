//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/seismic-review-service/internal/adapter/kafka"
	"github.com/couchcryptid/seismic-review-service/internal/config"
	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/review"
)

const testAuditTopic = "test-review-transitions"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAuditTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaAuditTopic: testAuditTopic}
	pub := kafka.NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = pub.Close() })

	session := review.NewSession("analista", time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))
	entry := review.AuditEntry{
		SessionID: session.ID,
		EventID:   "evt-20240101",
		From:      domain.StateLockedInReview,
		To:        domain.StateConfirmed,
		Actor:     session.User,
		At:        session.StartedAt.Add(time.Minute),
		Filters:   review.Filters{Scope: "regional"},
	}
	require.NoError(t, pub.Publish(ctx, entry))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAuditTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from audit topic")

	assert.Equal(t, "evt-20240101", string(msg.Key))
	var got kafka.TransitionMessage
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, session.ID, got.SessionID)
	assert.Equal(t, domain.StateConfirmed, got.To)
	assert.Equal(t, "regional", got.Filters.Scope)
}
