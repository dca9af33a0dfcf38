package resolver

import (
	"context"
	"sync"

	id "remitpool/pkg/domain"
	"remitpool/pkg/platform/sentinel"
)

// InMemoryStore keeps the bijection in two maps kept in lockstep.
type InMemoryStore struct {
	mu      sync.RWMutex
	byHash  map[id.IdentifierHash]id.AccountID
	byAccnt map[id.AccountID]id.IdentifierHash
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byHash:  make(map[id.IdentifierHash]id.AccountID),
		byAccnt: make(map[id.AccountID]id.IdentifierHash),
	}
}

func (s *InMemoryStore) Resolve(_ context.Context, hash id.IdentifierHash) (id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byHash[hash]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return account, nil
}

func (s *InMemoryStore) ReverseLookup(_ context.Context, account id.AccountID) (id.IdentifierHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.byAccnt[account]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return hash, nil
}

func (s *InMemoryStore) Register(_ context.Context, hash id.IdentifierHash, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byHash[hash]; taken {
		return sentinel.ErrConflict
	}
	if owned, ok := s.byAccnt[account]; ok && owned != hash {
		return sentinel.ErrConflict
	}
	s.byHash[hash] = account
	s.byAccnt[account] = hash
	return nil
}

func (s *InMemoryStore) Unregister(_ context.Context, hash id.IdentifierHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byHash[hash]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byHash, hash)
	delete(s.byAccnt, account)
	return nil
}

func (s *InMemoryStore) Repoint(_ context.Context, hash id.IdentifierHash, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byHash[hash]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owned, taken := s.byAccnt[account]; taken && owned != hash {
		return sentinel.ErrConflict
	}
	delete(s.byAccnt, old)
	s.byHash[hash] = account
	s.byAccnt[account] = hash
	return nil
}
