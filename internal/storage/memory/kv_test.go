package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore()
	store.SetClock(clock.Now)
	return store, clock
}

// -- SetIfAbsent tests --

func TestSetIfAbsent_FirstWriterWins(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	ok, err := store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetIfAbsent(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	entry, err := store.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), entry.Value)
}

func TestSetIfAbsent_ExpiredEntryCountsAsAbsent(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	_, err := store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Minute)

	ok, err := store.SetIfAbsent(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "entry expiring exactly now is no longer live")
}

// -- CompareAndExpire tests --

func TestCompareAndExpire_OwnerExtends(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	_, _ = store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)
	clock.now = clock.now.Add(50 * time.Second)

	ok, err := store.CompareAndExpire(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.now = clock.now.Add(50 * time.Second)
	_, err = store.Get(ctx, "lock")
	assert.NoError(t, err, "extended past the original expiry")
}

func TestCompareAndExpire_WrongValue(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, _ = store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)

	ok, err := store.CompareAndExpire(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareAndExpire_Expired(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	_, _ = store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)
	clock.now = clock.now.Add(2 * time.Minute)

	ok, err := store.CompareAndExpire(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

// -- CompareAndDelete tests --

func TestCompareAndDelete(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	_, _ = store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)

	ok, err := store.CompareAndDelete(ctx, "lock", []byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CompareAndDelete(ctx, "lock", []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Get(ctx, "lock")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

// -- Put / Get / ScanPrefix tests --

func TestPut_NoTTLNeverExpires(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cursor", []byte("1"), 0))
	clock.now = clock.now.AddDate(10, 0, 0)

	entry, err := store.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.Nil(t, entry.ExpiresAt)
}

func TestScanPrefix_OrderedAndLiveOnly(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "p:2", []byte("2"), time.Hour))
	require.NoError(t, store.Put(ctx, "p:1", []byte("1"), time.Hour))
	require.NoError(t, store.Put(ctx, "p:3", []byte("3"), time.Minute))
	require.NoError(t, store.Put(ctx, "q:1", []byte("x"), time.Hour))

	clock.now = clock.now.Add(2 * time.Minute)

	entries, err := store.ScanPrefix(ctx, "p:")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "p:1", entries[0].Key)
	assert.Equal(t, "p:2", entries[1].Key)
}

func TestPurgeExpired(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Put(ctx, "b", []byte("1"), time.Hour))
	require.NoError(t, store.Put(ctx, "c", []byte("1"), 0))
	clock.now = clock.now.Add(2 * time.Minute)

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 2, store.Len())
}

func TestUnavailable(t *testing.T) {
	store, _ := newTestStore()
	down := errors.New("connection refused")
	store.SetUnavailable(down)

	_, err := store.SetIfAbsent(context.Background(), "lock", []byte("a"), time.Minute)
	assert.ErrorIs(t, err, down)

	store.SetUnavailable(nil)
	_, err = store.SetIfAbsent(context.Background(), "lock", []byte("a"), time.Minute)
	assert.NoError(t, err)
}
