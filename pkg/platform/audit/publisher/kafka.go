package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "libris/pkg/platform/audit"
)

// KafkaPublisher produces audit events to a Kafka topic, keyed by user so
// per-user event order is preserved within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// kafkaPayload is the wire form of an audit event.
type kafkaPayload struct {
	Timestamp string            `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	Action    string            `json:"action"`
	Subject   string            `json:"subject,omitempty"`
	RecordID  string            `json:"record_id,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// NewKafkaPublisher connects a producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Emit produces the event asynchronously. Broker failures are logged by the
// produce callback; they never propagate to the emitting operation.
func (p *KafkaPublisher) Emit(ctx context.Context, event audit.Event) error {
	payload := kafkaPayload{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Subject:   event.Subject,
		RecordID:  event.RecordID,
		Detail:    event.Detail,
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(payload.UserID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to produce audit event",
				"error", err,
				"action", string(event.Action),
			)
		}
	})
	return nil
}

// Close flushes pending records and shuts the producer down.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
