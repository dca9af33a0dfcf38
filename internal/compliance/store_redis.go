package compliance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "remitpool/pkg/domain"
)

var usageOpDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "remitpool_compliance_usage_store_duration_ms",
	Help:    "Latency of redis usage store operations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const usageKeyPrefix = "compliance:usage:"

// usageKeyTTL keeps a bucket around for two days past its own day, long enough
// for any status query against the current bucket.
const usageKeyTTL = 48 * time.Hour

// RedisUsageStore is a Redis-backed implementation of UsageStore. This is the
// production-recommended implementation for distributed deployments where
// multiple instances must share daily-limit accounting.
type RedisUsageStore struct {
	client *redis.Client
}

func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

func (s *RedisUsageStore) Add(ctx context.Context, account id.AccountID, day int64, amount uint64) error {
	start := time.Now()
	defer func() {
		usageOpDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	// INCRBY takes a signed delta; anything above MaxInt64 would decrement.
	if amount > math.MaxInt64 {
		return fmt.Errorf("increment usage: amount %d exceeds the redis counter range", amount)
	}

	key := usageKey(account, day)
	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(amount))
	pipe.Expire(ctx, key, usageKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

func (s *RedisUsageStore) Used(ctx context.Context, account id.AccountID, day int64) (uint64, error) {
	start := time.Now()
	defer func() {
		usageOpDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	val, err := s.client.Get(ctx, usageKey(account, day)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return val, nil
}

func usageKey(account id.AccountID, day int64) string {
	return usageKeyPrefix + account.String() + ":" + strconv.FormatInt(day, 10)
}
