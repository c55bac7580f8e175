//go:build integration

package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"organchain/pkg/domain"
	"organchain/pkg/testutil/containers"
)

type RedisJournalSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	journal *RedisJournal
}

func TestRedisJournalSuite(t *testing.T) {
	suite.Run(t, new(RedisJournalSuite))
}

func (s *RedisJournalSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.journal = NewRedisJournal(s.redis.Client, WithTTL(time.Hour))
}

func (s *RedisJournalSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisJournalSuite) TestRecordListClear() {
	ctx := context.Background()
	addr := domain.MustParseAddress("0xab00000000000000000000000000000000000012")
	now := time.Now().UTC().Truncate(time.Second)

	s.Require().NoError(s.journal.Record(ctx, Entry{TxID: "tx-1", Op: "register_donor", Identity: addr, SubmittedAt: now}))

	entries, err := s.journal.List(ctx, addr)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("register_donor", entries[0].Op)
	s.True(now.Equal(entries[0].SubmittedAt))

	ttl, err := s.redis.Client.TTL(ctx, key(addr)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Require().NoError(s.journal.Clear(ctx, addr, "tx-1"))
	entries, err = s.journal.List(ctx, addr)
	s.Require().NoError(err)
	s.Empty(entries)
}
