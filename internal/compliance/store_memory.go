package compliance

import (
	"context"
	"math"
	"sync"

	id "remitpool/pkg/domain"
)

// InMemoryListStore keeps account records in a map. For distributed
// deployments back this with a shared store instead.
type InMemoryListStore struct {
	mu      sync.RWMutex
	records map[id.AccountID]AccountRecord
}

func NewInMemoryListStore() *InMemoryListStore {
	return &InMemoryListStore{records: make(map[id.AccountID]AccountRecord)}
}

func (s *InMemoryListStore) Get(_ context.Context, account id.AccountID) (*AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[account]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *InMemoryListStore) Save(_ context.Context, record AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Account] = record
	return nil
}

// InMemoryUsageStore keeps day-bucket accumulators in nested maps. Buckets are
// never pruned; stale days are simply unreachable through the limit check.
type InMemoryUsageStore struct {
	mu    sync.RWMutex
	usage map[id.AccountID]map[int64]uint64
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{usage: make(map[id.AccountID]map[int64]uint64)}
}

func (s *InMemoryUsageStore) Add(_ context.Context, account id.AccountID, day int64, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.usage[account]
	if !ok {
		days = make(map[int64]uint64)
		s.usage[account] = days
	}
	if days[day] > math.MaxUint64-amount {
		days[day] = math.MaxUint64
	} else {
		days[day] += amount
	}
	return nil
}

func (s *InMemoryUsageStore) Used(_ context.Context, account id.AccountID, day int64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[account][day], nil
}
