package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	id "remitpool/pkg/domain"
	"remitpool/pkg/platform/sentinel"
)

// KafkaSink publishes events to a kafka topic. It is emit-only: reads go
// through whatever consumes the topic, not back through this sink.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil && !strings.Contains(err.Error(), "TOPIC_ALREADY_EXISTS") {
		client.Close()
		return nil, fmt.Errorf("create topic %s: %w", topic, err)
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

// Append produces the event synchronously. Ordering per remittance is
// preserved by keying records on the remittance id.
func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(kafkaEnvelope{
		Timestamp:  event.Timestamp.UnixMilli(),
		Kind:       string(event.Kind),
		Actor:      event.Actor.String(),
		Remittance: uint64(event.Remittance),
		Amount:     event.Amount,
		Fee:        event.Fee,
		Total:      event.Total,
		Detail:     event.Detail,
		RequestID:  event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.Remittance.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// ListByRemittance is not supported on the kafka sink.
func (s *KafkaSink) ListByRemittance(context.Context, id.RemittanceID) ([]Event, error) {
	return nil, sentinel.ErrUnavailable
}

func (s *KafkaSink) Close() {
	s.client.Close()
}

type kafkaEnvelope struct {
	Timestamp  int64  `json:"ts"`
	Kind       string `json:"kind"`
	Actor      string `json:"actor,omitempty"`
	Remittance uint64 `json:"remittance,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`
	Fee        uint64 `json:"fee,omitempty"`
	Total      uint64 `json:"total,omitempty"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}
