//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"organchain/pkg/domain"
	audit "organchain/pkg/platform/audit"
	"organchain/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
	store  *Store
}

func TestKafkaStoreSuite(t *testing.T) {
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.broker = containers.NewRedpandaContainer(s.T())
	store, err := New(s.broker.Brokers, "audit-test")
	s.Require().NoError(err)
	s.store = store
	s.Require().NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TearDownSuite() {
	s.store.Close()
}

func (s *KafkaStoreSuite) TestEnsureTopicIsIdempotent() {
	s.NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TestAppendKeysByIdentity() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr := domain.MustParseAddress("0xab00000000000000000000000000000000000012")
	event := audit.Event{
		ID:        "evt-1",
		Category:  audit.CategoryCompliance,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Identity:  addr,
		Action:    string(audit.EventDonorRegistered),
		TxID:      "tx-1",
		Outcome:   "success",
	}
	s.Require().NoError(s.store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Brokers...),
		kgo.ConsumeTopics("audit-test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got *kgo.Record
	for got == nil {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			if got == nil && string(r.Key) == addr.String() {
				got = r
			}
		})
	}

	var rec record
	s.Require().NoError(json.Unmarshal(got.Value, &rec))
	s.Equal("evt-1", rec.ID)
	s.Equal("donor_registered", rec.Action)
	s.Equal("tx-1", rec.TxID)
	s.Equal(addr.String(), rec.Identity)
}
