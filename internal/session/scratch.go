package session

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const keySep = "\x00"

// MemoryScratch keeps scratch entries in process memory. Entries expire after
// ttl; a zero ttl keeps them until evicted or the session is dropped.
type MemoryScratch struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryScratch(size int, ttl time.Duration) *MemoryScratch {
	if size <= 0 {
		size = 64
	}
	return &MemoryScratch{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *MemoryScratch) Get(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(sessionID + keySep + key)
	return v, ok, nil
}

func (m *MemoryScratch) Put(_ context.Context, sessionID, key string, value []byte) error {
	m.lru.Add(sessionID+keySep+key, append([]byte(nil), value...))
	return nil
}

func (m *MemoryScratch) Delete(_ context.Context, sessionID, key string) error {
	m.lru.Remove(sessionID + keySep + key)
	return nil
}

func (m *MemoryScratch) DeleteSession(_ context.Context, sessionID string) error {
	prefix := sessionID + keySep
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
	return nil
}
