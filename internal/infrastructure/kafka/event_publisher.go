package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmot-vision/marmot/internal/domain"
	"github.com/marmot-vision/marmot/pkg/kafka"
	"github.com/marmot-vision/marmot/pkg/logging"
	"github.com/marmot-vision/marmot/pkg/metrics"
)

const eventSource = "marmot-api"

// Topics for monitoring events
const (
	TopicZoneEvents        = "marmot.zone-events"
	TopicWorkstationEvents = "marmot.workstation-events"
	TopicStreamEvents      = "marmot.stream-events"
)

// EventPublisher publishes domain events to Kafka
type EventPublisher struct {
	producer *kafka.Producer
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewEventPublisher creates a Kafka-backed event publisher
func NewEventPublisher(producer *kafka.Producer, logger *logging.Logger, m *metrics.Metrics) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		logger:   logger.WithComponent("event-publisher"),
		metrics:  m,
	}
}

// Publish publishes a single domain event
func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	topic, subject := route(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	envelope := &kafka.Event{
		ID:      uuid.New().String(),
		Type:    event.EventType(),
		Source:  eventSource,
		Subject: subject,
		Time:    event.OccurredAt(),
		Data:    data,
	}

	start := time.Now()
	err = p.producer.PublishEvent(ctx, topic, envelope)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.EventType(), err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, topic, event.EventType(), err == nil, duration)

	return err
}

// PublishAll publishes a batch of domain events, stopping at the first failure
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// route maps a domain event to its topic and partition key
func route(event domain.DomainEvent) (topic, subject string) {
	switch e := event.(type) {
	case *domain.ZoneStatusChangedEvent:
		return TopicZoneEvents, e.ZoneID
	case *domain.WorkstationStatusChangedEvent:
		return TopicWorkstationEvents, e.WorkstationID
	case *domain.StreamStatusChangedEvent:
		return TopicStreamEvents, e.StreamID
	default:
		return TopicWorkstationEvents, event.EventType()
	}
}
