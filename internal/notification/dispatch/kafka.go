package dispatch

import (
	"context"
	"fmt"

	"filegov/internal/notification/models"
	"filegov/internal/platform/kafka/producer"
)

// MessageProducer is the part of producer.Producer the dispatcher uses.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaDispatcher publishes entries to one topic, keyed by recipient so an
// actor's notifications stay ordered within a partition.
type KafkaDispatcher struct {
	producer MessageProducer
	topic    string
}

func NewKafka(p MessageProducer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: p, topic: topic}
}

func (d *KafkaDispatcher) Name() string { return "kafka" }

func (d *KafkaDispatcher) Dispatch(ctx context.Context, entry *models.Entry) error {
	payload, err := encode(entry)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return d.producer.Produce(ctx, &producer.Message{
		Topic: d.topic,
		Key:   []byte(entry.RecipientID.String()),
		Value: payload,
		Headers: map[string]string{
			"notification_id": entry.ID.String(),
			"category":        string(entry.Category),
		},
	})
}
