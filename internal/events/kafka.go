package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct{ w *kafka.Writer }

// NewProducerWithBrokers constructs a producer for the given broker list.
func NewProducerWithBrokers(brokers []string) *Producer {
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	return &Producer{
		w: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Balancer: &kafka.Hash{}, // partition by Kafka message key
		}),
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// Envelope is the standard event schema the gateway publishes.
// Keep it small and stable.
type Envelope struct {
	EventType    string      `json:"eventType"`
	EventVersion string      `json:"eventVersion"`
	OccurredAt   time.Time   `json:"occurredAt"`
	AggregateID  string      `json:"aggregateId"` // e.g., tx_ref
	Data         interface{} `json:"data"`
}

// PaymentResolution is the payload published when a reconciliation session
// reaches a terminal status.
type PaymentResolution struct {
	TxRef   string `json:"txRef"`
	Status  string `json:"status"`
	OrderID int64  `json:"orderId,omitempty"`
	Message string `json:"message,omitempty"`
	Checks  int    `json:"checks"`
}

// Publish writes a single message to Kafka.
// 'key' is the Kafka partition key (use tx_ref to keep per-payment ordering).
func (p *Producer) Publish(ctx context.Context, topic, key string, evt Envelope) error {
	evt.OccurredAt = time.Now().UTC()
	val, _ := json.Marshal(evt)
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
	})
}

// PublishPaymentResolved publishes a PaymentResolved envelope keyed by the
// transaction reference.
func (p *Producer) PublishPaymentResolved(ctx context.Context, topic string, res PaymentResolution) error {
	evt := Envelope{
		EventType:    "PaymentResolved",
		EventVersion: "v1",
		AggregateID:  res.TxRef,
		Data:         res,
	}
	return p.Publish(ctx, topic, res.TxRef, evt)
}
