package escrow

import (
	"context"
	"sync"

	id "remitpool/pkg/domain"
	"remitpool/pkg/platform/sentinel"
)

// InMemoryStore keeps the remittance table and indexes in maps. The service
// serializes all mutation; the store's own lock only protects concurrent
// readers of the query surface.
type InMemoryStore struct {
	mu          sync.RWMutex
	records     map[id.RemittanceID]*Remittance
	byCreator   map[id.AccountID][]id.RemittanceID
	byRecipient map[id.AccountID][]id.RemittanceID
	nextID      id.RemittanceID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:     make(map[id.RemittanceID]*Remittance),
		byCreator:   make(map[id.AccountID][]id.RemittanceID),
		byRecipient: make(map[id.AccountID][]id.RemittanceID),
		nextID:      1,
	}
}

func (s *InMemoryStore) Create(_ context.Context, record *Remittance) (id.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = s.nextID
	s.nextID++
	s.records[record.ID] = record
	s.byCreator[record.Creator] = append(s.byCreator[record.Creator], record.ID)
	s.byRecipient[record.Recipient] = append(s.byRecipient[record.Recipient], record.ID)
	return record.ID, nil
}

func (s *InMemoryStore) Get(_ context.Context, rid id.RemittanceID) (*Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[rid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) Restore(_ context.Context, record *Remittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) ByCreator(_ context.Context, account id.AccountID) ([]id.RemittanceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.RemittanceID{}, s.byCreator[account]...), nil
}

func (s *InMemoryStore) ByRecipient(_ context.Context, account id.AccountID) ([]id.RemittanceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.RemittanceID{}, s.byRecipient[account]...), nil
}

func (s *InMemoryStore) NextID(_ context.Context) (id.RemittanceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}
