// Package kafka publishes list notifications as JSON records keyed by list.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"molecule/internal/listmodule/models"
	platformkafka "molecule/internal/platform/kafka"
)

// Message is the wire form of a notification.
type Message struct {
	Kind      string    `json:"kind"`
	List      string    `json:"list"`
	Addresses []string  `json:"addresses"`
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id,omitempty"`
}

type Publisher struct {
	producer platformkafka.Producer
	topic    string
}

func NewPublisher(producer platformkafka.Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Notify blocks until the broker acknowledges the record.
func (p *Publisher) Notify(ctx context.Context, n models.Notification) error {
	value, err := json.Marshal(Encode(n))
	if err != nil {
		return fmt.Errorf("marshal list notification: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(n.List.Hex()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce list notification: %w", err)
	}
	return nil
}

func Encode(n models.Notification) Message {
	addrs := make([]string, len(n.Addresses))
	for i, a := range n.Addresses {
		addrs[i] = a.Hex()
	}
	return Message{
		Kind:      string(n.Kind),
		List:      n.List.Hex(),
		Addresses: addrs,
		At:        n.At.UTC(),
		RequestID: n.RequestID,
	}
}
