//go:build integration

package compliance_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"remitpool/internal/compliance"
	"remitpool/pkg/testutil/containers"
)

type RedisUsageStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *compliance.RedisUsageStore
}

func TestRedisUsageStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisUsageStoreSuite))
}

func (s *RedisUsageStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = compliance.NewRedisUsageStore(s.redis.Client)
}

func (s *RedisUsageStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisUsageStoreSuite) TestUnknownBucketReadsZero() {
	used, err := s.store.Used(context.Background(), "nobody", 20_000)
	s.NoError(err)
	s.Zero(used)
}

func (s *RedisUsageStoreSuite) TestAddAccumulates() {
	ctx := context.Background()

	s.Require().NoError(s.store.Add(ctx, "alice", 20_000, 1_500))
	s.Require().NoError(s.store.Add(ctx, "alice", 20_000, 500))

	used, err := s.store.Used(ctx, "alice", 20_000)
	s.NoError(err)
	s.Equal(uint64(2_000), used)
}

func (s *RedisUsageStoreSuite) TestAddRejectsAmountsBeyondCounterRange() {
	ctx := context.Background()

	s.Require().NoError(s.store.Add(ctx, "alice", 20_000, 1_000))

	err := s.store.Add(ctx, "alice", 20_000, math.MaxInt64+1)
	s.Error(err)

	// The failed add must not have touched the bucket.
	used, err := s.store.Used(ctx, "alice", 20_000)
	s.NoError(err)
	s.Equal(uint64(1_000), used)
}

func (s *RedisUsageStoreSuite) TestBucketsAreIndependent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Add(ctx, "alice", 20_000, 1_000))
	s.Require().NoError(s.store.Add(ctx, "alice", 20_001, 250))
	s.Require().NoError(s.store.Add(ctx, "bob", 20_000, 400))

	used, err := s.store.Used(ctx, "alice", 20_000)
	s.NoError(err)
	s.Equal(uint64(1_000), used)

	used, err = s.store.Used(ctx, "alice", 20_001)
	s.NoError(err)
	s.Equal(uint64(250), used)

	used, err = s.store.Used(ctx, "bob", 20_000)
	s.NoError(err)
	s.Equal(uint64(400), used)
}

// TestConcurrentAdds verifies increments are not lost under contention.
func (s *RedisUsageStoreSuite) TestConcurrentAdds() {
	ctx := context.Background()
	const goroutines = 25

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Add(ctx, "alice", 20_000, 100))
		}()
	}
	wg.Wait()

	used, err := s.store.Used(ctx, "alice", 20_000)
	s.NoError(err)
	s.Equal(uint64(goroutines*100), used)
}
