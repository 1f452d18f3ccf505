package cachestore

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryRecord struct {
	value     []byte
	expiresAt time.Time // zero means "no expiration"
	protected int        // refcount of Protect calls currently outstanding
}

func (r memoryRecord) expired(now time.Time) bool {
	if r.protected > 0 {
		return false
	}
	return !r.expiresAt.IsZero() && now.After(r.expiresAt)
}

// MemoryStore is an in-process Store backed by a guarded map, adapted
// from the teacher's sync.Map-based tile cache but generalized to
// arbitrary string keys and given TTL and protect/release semantics.
type MemoryStore struct {
	mu         sync.Mutex
	records    map[string]*memoryRecord
	defaultTTL time.Duration
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty MemoryStore. defaultTTL is used when
// Put is called with ttl == 0; zero means entries never expire.
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		records:    make(map[string]*memoryRecord),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	if rec.expired(s.now()) {
		delete(s.records, key)
		return nil, false, nil
	}
	return rec.value, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	protected := 0
	if existing, ok := s.records[key]; ok {
		protected = existing.protected
	}

	s.records[key] = &memoryRecord{value: value, expiresAt: expiresAt, protected: protected}
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return false, nil
	}
	if rec.expired(s.now()) {
		delete(s.records, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) RemoveKeysWithPrefix(_ context.Context, prefix string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.records {
		if strings.HasPrefix(key, prefix) {
			delete(s.records, key)
		}
	}
	return true, nil
}

func (s *MemoryStore) Protect(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		rec, ok := s.records[key]
		if !ok {
			rec = &memoryRecord{}
			s.records[key] = rec
		}
		rec.protected++
	}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		rec, ok := s.records[key]
		if !ok || rec.protected == 0 {
			continue
		}
		rec.protected--
		if rec.protected == 0 && rec.value == nil && rec.expiresAt.IsZero() {
			// a placeholder created by Protect for a not-yet-cached key
			delete(s.records, key)
		}
	}
	return nil
}
