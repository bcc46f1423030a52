package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/zonewatch/riskcore/internal/config"
	"github.com/zonewatch/riskcore/internal/engine"
)

// Writer publishes committed cycles to a Kafka topic, one message per zone
// record plus one message per allocation plan.
// It implements engine.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishCycle serializes a cycle's records and plans and writes them in a
// single WriteMessages call, so consumers see a cycle arrive together.
func (w *Writer) PublishCycle(ctx context.Context, result engine.CycleResult) error {
	msgs, err := buildMessages(result)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// buildMessages maps a cycle to its Kafka messages: risk records keyed by
// zone ID, allocation plans keyed by resource key.
func buildMessages(result engine.CycleResult) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(result.Records)+len(result.Plans))

	for i := range result.Records {
		rec := &result.Records[i]
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("serialize risk record for zone %s: %w", rec.ZoneID, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(rec.ZoneID),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "kind", Value: []byte("risk_record")},
				{Key: "cycle_id", Value: []byte(result.CycleID)},
				{Key: "computed_at", Value: []byte(result.ComputedAt.Format(time.RFC3339))},
			},
		})
	}

	for _, plan := range result.Plans {
		data, err := json.Marshal(plan)
		if err != nil {
			return nil, fmt.Errorf("serialize allocation plan %s: %w", plan.ResourceKey, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(plan.ResourceKey),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "kind", Value: []byte("allocation_plan")},
				{Key: "cycle_id", Value: []byte(result.CycleID)},
				{Key: "computed_at", Value: []byte(result.ComputedAt.Format(time.RFC3339))},
			},
		})
	}

	return msgs, nil
}
