// Package kafka publishes memory change events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/keepsakeco/keepsake/pkg/eventstream"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses. At least one is
	// required.
	Brokers []string

	// Topic receives all change events.
	Topic string
}

// Publisher implements eventstream.Publisher on a kafka.Writer. Messages are
// keyed by record ID so changes to one record stay in partition order.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher validates the config and creates the writer. The writer
// connects lazily; broker reachability surfaces on the first Publish.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("kafka event publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// Publish writes the event as a JSON message keyed by record ID.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.MemoryChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.EventID, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RecordID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventID, err)
	}

	p.logger.Debug("published event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("record_id", event.RecordID),
	)

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
