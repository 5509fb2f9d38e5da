package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

type entry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryStore implements Store in process memory. It backs single
// instance runs and stands in when Redis is unreachable.
type InMemoryStore struct {
	entries sync.Map // map[string]entry
	logger  *zap.Logger
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewInMemoryStore creates an in-memory store that drops expired entries
// in the background until Stop is called
func NewInMemoryStore(logger *zap.Logger) *InMemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InMemoryStore{logger: logger, now: time.Now, stopCh: make(chan struct{})}
	go s.cleanupExpired()
	return s
}

// Get returns the cached value
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(entry)
	if !s.now().Before(e.expiresAt) {
		s.entries.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries.Store(key, entry{value: value, expiresAt: s.now().Add(ttl)})
	return nil
}

// Delete removes keys
func (s *InMemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.entries.Delete(k)
	}
	return nil
}

// Stop ends the background cleanup
func (s *InMemoryStore) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

func (s *InMemoryStore) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.removeExpired(); n > 0 {
				s.logger.Debug("Expired cache entries removed", zap.Int("count", n))
			}
		}
	}
}

func (s *InMemoryStore) removeExpired() int {
	now := s.now()
	removed := 0
	s.entries.Range(func(key, value any) bool {
		if !now.Before(value.(entry).expiresAt) {
			s.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
