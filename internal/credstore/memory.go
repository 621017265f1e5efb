package credstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore implements Store on top of an in-process cache.
// Useful for development and testing.
type memoryStore struct {
	prefix string
	c      *gocache.Cache
}

// NewMemory creates an in-memory credential store.
func NewMemory(prefix string) Store {
	return &memoryStore{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (s *memoryStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.c.Get(s.key(key))
	if !ok {
		return "", ErrNotFound
	}
	val, _ := v.(string)
	return val, nil
}

func (s *memoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(s.key(key), value, ttl)
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.c.Delete(s.key(key))
	return nil
}

func (s *memoryStore) Close() error { return nil }
