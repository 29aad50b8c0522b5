// Package kafka publishes mutation events to a Kafka topic. Publishing is
// best effort: the orchestrator logs and continues when a write fails, so
// the cascade never depends on the broker being up.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/bonkapal/cashbook/ledger"
)

// Publisher implements ledger.EventPublisher on a kafka-go writer.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishMutation writes one event, keyed by category so consumers see each
// category's mutations in order.
func (p *Publisher) PublishMutation(ctx context.Context, ev ledger.MutationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.CategoryID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
