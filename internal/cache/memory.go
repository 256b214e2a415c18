package cache

import (
	"certo/internal/model"
	"context"
	"sync"
	"time"
)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

type memoryMap[T any] struct {
	mu    sync.Mutex
	items map[string]memoryEntry[T]
	ttl   time.Duration
}

func newMemoryMap[T any](ttl time.Duration) *memoryMap[T] {
	return &memoryMap[T]{items: make(map[string]memoryEntry[T]), ttl: ttl}
}

func (m *memoryMap[T]) get(key string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	e, ok := m.items[key]
	if !ok {
		return zero, false
	}
	if m.ttl > 0 && time.Now().After(e.expiresAt) {
		delete(m.items, key)
		return zero, false
	}
	return e.value, true
}

func (m *memoryMap[T]) set(key string, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryEntry[T]{value: v, expiresAt: time.Now().Add(m.ttl)}
}

func (m *memoryMap[T]) del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// NewMemorySessionCache returns a process-local SessionCache, used when the
// server runs without Redis and in tests.
func NewMemorySessionCache(ttl time.Duration) SessionCache {
	return &memorySessionCache{m: newMemoryMap[model.Participant](ttl)}
}

type memorySessionCache struct {
	m *memoryMap[model.Participant]
}

func (c *memorySessionCache) Set(ctx context.Context, p *model.Participant) error {
	c.m.set(p.SessionID, *p)
	return nil
}

func (c *memorySessionCache) Get(ctx context.Context, sessionID string) (*model.Participant, error) {
	p, ok := c.m.get(sessionID)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memorySessionCache) Delete(ctx context.Context, sessionID string) error {
	c.m.del(sessionID)
	return nil
}

// NewMemoryResultsCache returns a process-local ResultsCache.
func NewMemoryResultsCache(ttl time.Duration) ResultsCache {
	return &memoryResultsCache{m: newMemoryMap[*model.SurveyResults](ttl)}
}

type memoryResultsCache struct {
	m *memoryMap[*model.SurveyResults]
}

func (c *memoryResultsCache) Get(ctx context.Context, surveyID string) (*model.SurveyResults, error) {
	r, ok := c.m.get(surveyID)
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (c *memoryResultsCache) Set(ctx context.Context, results *model.SurveyResults) error {
	c.m.set(results.SurveyID, results)
	return nil
}

func (c *memoryResultsCache) Invalidate(ctx context.Context, surveyID string) error {
	c.m.del(surveyID)
	return nil
}
