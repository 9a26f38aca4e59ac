package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a small in-process TTL cache used for read-heavy lookups such
// as the provider directory and the category list.
type Store interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Flush()
}

type memoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) Store {
	return &memoryStore{c: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *memoryStore) Get(key string) (interface{}, bool) {
	return s.c.Get(key)
}

func (s *memoryStore) Set(key string, value interface{}, ttl time.Duration) {
	s.c.Set(key, value, ttl)
}

func (s *memoryStore) Delete(key string) {
	s.c.Delete(key)
}

func (s *memoryStore) Flush() {
	s.c.Flush()
}
