package auditlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// FailureEvent describes an audit append that did not land. The ledger state
// is already committed when this fires; operators re-derive the missing rows
// from redemption history.
type FailureEvent struct {
	TransactionID string    `json:"transaction_id"`
	HouseholdID   string    `json:"household_id"`
	MerchantID    string    `json:"merchant_id"`
	Bucket        string    `json:"bucket"`
	Error         string    `json:"error"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier surfaces audit append failures to an operator channel.
type Notifier interface {
	AppendFailed(ctx context.Context, event FailureEvent)
}

// LogNotifier reports failures through the process logger only. Used when no
// broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a logger-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) AppendFailed(ctx context.Context, event FailureEvent) {
	n.logger.ErrorContext(ctx, "audit append failed",
		"transaction_id", event.TransactionID,
		"household_id", event.HouseholdID,
		"merchant_id", event.MerchantID,
		"bucket", event.Bucket,
		"error", event.Error,
	)
}

// KafkaNotifier publishes failure events to an operator topic. Produces
// asynchronously; a produce failure falls back to the logger so the event is
// never lost silently.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaNotifier constructs a Kafka-backed notifier.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaNotifier{client: client, topic: topic, logger: logger}, nil
}

func (n *KafkaNotifier) AppendFailed(ctx context.Context, event FailureEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.ErrorContext(ctx, "marshal audit failure event", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(event.TransactionID),
		Value: payload,
	}
	n.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.logger.Error("publish audit failure event",
				"transaction_id", event.TransactionID,
				"error", err,
			)
		}
	})
}

// Close flushes and closes the underlying producer.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
