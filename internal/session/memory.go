package session

import (
	"context"
	"time"

	"companyops/internal/cache"
)

// MemoryStore keeps sessions in a process-local LRU.
type MemoryStore struct {
	lru *cache.LRU[*Session]
	now func() time.Time
}

func NewMemoryStore(maxSessions int) *MemoryStore {
	return &MemoryStore{
		lru: cache.NewLRU[*Session](maxSessions, 24*time.Hour),
		now: time.Now,
	}
}

// Cache exposes the backing LRU so a cache.Manager can sweep it.
func (m *MemoryStore) Cache() *cache.LRU[*Session] { return m.lru }

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		m.lru.Delete(s.ID)
		return nil
	}
	cp := *s
	m.lru.SetWithTTL(s.ID, &cp, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.lru.Get(id)
	if !ok || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.lru.Delete(id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
