package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recent records in memory and delegates to a
// backing Store on miss. Saves always reach the backing store.
type LRUStore struct {
	mu   sync.Mutex
	cap  int
	back Store

	order *list.List // most recent at front; values are *lruEntry
	items map[string]*list.Element
}

type lruEntry struct {
	key string
	rec *RunRecord
}

// NewLRUStore creates an LRU cache with the given capacity delegating
// to back on cache misses. Capacity must be >= 1.
func NewLRUStore(capacity int, back Store) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUStore{
		cap:   capacity,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, capacity),
	}
}

// Save caches the record and writes it through to the backing store.
func (s *LRUStore) Save(rec *RunRecord) error {
	s.mu.Lock()
	s.insert(rec.ID, rec)
	s.mu.Unlock()

	return s.back.Save(rec)
}

// Load checks the cache first. On miss, loads from the backing store
// and promotes the record into the cache.
func (s *LRUStore) Load(runID string) (*RunRecord, error) {
	s.mu.Lock()
	if el, ok := s.items[runID]; ok {
		s.order.MoveToFront(el)
		rec := el.Value.(*lruEntry).rec
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.insert(runID, rec)
	s.mu.Unlock()
	return rec, nil
}

// insert adds or refreshes an entry, evicting the oldest one when over
// capacity. Caller holds the lock.
func (s *LRUStore) insert(key string, rec *RunRecord) {
	if el, ok := s.items[key]; ok {
		el.Value.(*lruEntry).rec = rec
		s.order.MoveToFront(el)
		return
	}
	s.items[key] = s.order.PushFront(&lruEntry{key: key, rec: rec})
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*lruEntry).key)
	}
}
