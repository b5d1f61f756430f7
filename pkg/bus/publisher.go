package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers keyed messages to the message bus
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// messageWriter is the kafka.Writer surface the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes messages through a shared kafka.Writer. The topic
// is set per message so one writer serves every outbox topic.
type KafkaPublisher struct {
	writer messageWriter
	logger *observability.Logger
}

// NewKafkaPublisher creates a publisher connected to the given brokers
func NewKafkaPublisher(brokers []string, logger *observability.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

func newKafkaPublisherWithWriter(writer messageWriter, logger *observability.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes a single keyed message to a topic
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", topic, err)
	}

	p.logger.WithFields(map[string]interface{}{
		"topic": topic,
		"key":   key,
	}).Debug("message published")

	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
