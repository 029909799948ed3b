package kv

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or its entry has expired.
var ErrNotFound = errors.New("kv: key not found")

// Entry is one live key/value pair. A nil ExpiresAt means the entry never expires.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt *time.Time
}

// IKeyValueStore defines the shared, expiring key/value store every replica talks to.
// Expired entries behave as absent for every operation, whether or not the backend
// has physically removed them yet. A ttl of zero means no expiry.
type IKeyValueStore interface {
	// SetIfAbsent writes the entry only when no live entry exists for key.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndExpire resets the expiry of key only while its live value equals value.
	CompareAndExpire(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while its value equals value.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Entry, error)
	// ScanPrefix returns the live entries whose key starts with prefix, ordered by key.
	ScanPrefix(ctx context.Context, prefix string) ([]*Entry, error)
	// PurgeExpired physically removes expired entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
	Close() error
}

// ExpiryFrom converts a ttl into an absolute expiry, nil when ttl is zero.
func ExpiryFrom(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	expiresAt := now.Add(ttl)
	return &expiresAt
}

// IsLive reports whether an entry with the given expiry is still visible at now.
func IsLive(expiresAt *time.Time, now time.Time) bool {
	return expiresAt == nil || expiresAt.After(now)
}

// EscapeLike escapes the LIKE wildcards in a key prefix.
func EscapeLike(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix)
}
