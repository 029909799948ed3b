package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

var _ kv.IKeyValueStore = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt *time.Time
}

// Store is a process-local key/value store. It gives a single replica the same
// semantics as the shared backends and backs the package tests.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	down    error
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetClock replaces the clock used for expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetUnavailable makes every operation fail with err until called again with nil.
func (s *Store) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = err
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) live(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok || !kv.IsLive(e.expiresAt, s.now()) {
		return entry{}, false
	}
	return e, true
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return false, s.down
	}
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = entry{value: bytes.Clone(value), expiresAt: kv.ExpiryFrom(s.now(), ttl)}
	return true, nil
}

func (s *Store) CompareAndExpire(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return false, s.down
	}
	e, ok := s.live(key)
	if !ok || !bytes.Equal(e.value, value) {
		return false, nil
	}
	e.expiresAt = kv.ExpiryFrom(s.now(), ttl)
	s.entries[key] = e
	return true, nil
}

func (s *Store) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return false, s.down
	}
	e, ok := s.entries[key]
	if !ok || !bytes.Equal(e.value, value) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return s.down
	}
	s.entries[key] = entry{value: bytes.Clone(value), expiresAt: kv.ExpiryFrom(s.now(), ttl)}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*kv.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return nil, s.down
	}
	e, ok := s.live(key)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return &kv.Entry{Key: key, Value: bytes.Clone(e.value), ExpiresAt: e.expiresAt}, nil
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]*kv.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return nil, s.down
	}
	var result []*kv.Entry
	for key := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if e, ok := s.live(key); ok {
			result = append(result, &kv.Entry{Key: key, Value: bytes.Clone(e.value), ExpiresAt: e.expiresAt})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down != nil {
		return 0, s.down
	}
	var removed int64
	for key, e := range s.entries {
		if !kv.IsLive(e.expiresAt, s.now()) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Close() error {
	return nil
}
