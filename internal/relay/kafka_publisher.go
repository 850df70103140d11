package relay

import (
	"context"
	"fmt"

	"github.com/vaidashi/courier-ledger/internal/models"
	"github.com/vaidashi/courier-ledger/pkg/kafka"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

// KafkaPublisher publishes ledger events to a Kafka topic, keyed by
// aggregate id so all events of one order or slip land on one partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   logger.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher.
func NewKafkaPublisher(producer *kafka.Producer, topic string, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   log,
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.Event) error {
	value := event.Payload

	if len(value) == 0 {
		value = []byte("{}")
	}

	if err := p.producer.SendMessage(ctx, p.topic, event.AggregateID, value); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	p.logger.Debug("Event published",
		"topic", p.topic,
		"event_id", event.ID,
		"event_type", event.Type,
		"aggregate_id", event.AggregateID)

	return nil
}
