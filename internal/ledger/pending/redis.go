package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"organchain/pkg/domain"
)

const (
	// Redis key prefix for per-identity pending transaction hashes
	pendingKeyPrefix = "organchain:pending:"

	defaultTTL = 24 * time.Hour
)

// RedisJournal stores entries in one hash per identity. The hash expires
// after ttl of inactivity so abandoned transactions age out.
type RedisJournal struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisJournal)

func WithTTL(ttl time.Duration) RedisOption {
	return func(j *RedisJournal) {
		if ttl > 0 {
			j.ttl = ttl
		}
	}
}

func NewRedisJournal(client *redis.Client, opts ...RedisOption) *RedisJournal {
	j := &RedisJournal{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j
}

func key(identity domain.Address) string {
	return pendingKeyPrefix + identity.String()
}

// Record writes the entry and refreshes the hash expiry in one pipeline.
func (j *RedisJournal) Record(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal pending entry: %w", err)
	}
	pipe := j.client.TxPipeline()
	pipe.HSet(ctx, key(e.Identity), e.TxID, raw)
	pipe.Expire(ctx, key(e.Identity), j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record pending tx %s: %w", e.TxID, err)
	}
	return nil
}

func (j *RedisJournal) Clear(ctx context.Context, identity domain.Address, txID string) error {
	if err := j.client.HDel(ctx, key(identity), txID).Err(); err != nil {
		return fmt.Errorf("clear pending tx %s: %w", txID, err)
	}
	return nil
}

func (j *RedisJournal) List(ctx context.Context, identity domain.Address) ([]Entry, error) {
	fields, err := j.client.HGetAll(ctx, key(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending txs: %w", err)
	}
	out := make([]Entry, 0, len(fields))
	for txID, raw := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode pending tx %s: %w", txID, err)
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}
