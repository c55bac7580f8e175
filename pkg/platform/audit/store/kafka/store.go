// Package kafka ships audit events to a Kafka (or Redpanda) topic.
//
// Events are keyed by identity so one donor's trail stays ordered within a
// partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "organchain/pkg/platform/audit"
)

// DefaultTopic receives donor audit events when no topic is configured.
const DefaultTopic = "organchain.audit"

type record struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Identity  string    `json:"identity"`
	Action    string    `json:"action"`
	TxID      string    `json:"tx_id,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Store produces audit events synchronously.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to brokers. The topic defaults to DefaultTopic.
func New(brokers []string, topic string) (*Store, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(s.client)
	topics, err := adm.ListTopics(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if topics.Has(s.topic) {
		return nil
	}
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	if resp.Err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, resp.Err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(record{
		ID:        event.ID,
		Category:  string(event.Category),
		Timestamp: event.Timestamp,
		Identity:  event.Identity.String(),
		Action:    event.Action,
		TxID:      event.TxID,
		Outcome:   event.Outcome,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Identity.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and closes the client.
func (s *Store) Close() {
	s.client.Close()
}
