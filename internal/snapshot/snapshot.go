package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/carson-networks/transaction-sync/internal/models"
	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

const keyPrefix = "transactions:DATE:"

type ICache interface {
	Upsert(ctx context.Context, snapshot *models.TransactionSnapshot) error
	Get(ctx context.Context, date civil.Date, page int) (*models.TransactionSnapshot, error)
	GetByDate(ctx context.Context, date civil.Date) ([]*models.TransactionSnapshot, error)
	GetAll(ctx context.Context) ([]*models.TransactionSnapshot, error)
}

var _ ICache = (*Cache)(nil)

// Cache stores one entry per (date, page), each expiring after its TTL.
type Cache struct {
	kv         kv.IKeyValueStore
	defaultTTL time.Duration
}

func NewCache(store kv.IKeyValueStore, defaultTTL time.Duration) *Cache {
	return &Cache{kv: store, defaultTTL: defaultTTL}
}

// Key returns the store key of a snapshot page.
func Key(date civil.Date, page int) string {
	return datePrefix(date) + strconv.Itoa(page)
}

func datePrefix(date civil.Date) string {
	return keyPrefix + date.String() + ":PAGE:"
}

// Upsert overwrites the snapshot for its (date, page) and restarts its TTL.
func (c *Cache) Upsert(ctx context.Context, snapshot *models.TransactionSnapshot) error {
	if snapshot == nil {
		return errors.New("snapshot: nil snapshot")
	}
	if snapshot.Page < 1 || !snapshot.CreatedDate.IsValid() {
		return fmt.Errorf("snapshot: invalid key date=%s page=%d", snapshot.CreatedDate, snapshot.Page)
	}

	ttl := snapshot.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	value, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := Key(snapshot.CreatedDate, snapshot.Page)
	if err := c.kv.Put(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	return nil
}

// Get returns nil when no live snapshot exists for the page.
func (c *Cache) Get(ctx context.Context, date civil.Date, page int) (*models.TransactionSnapshot, error) {
	key := Key(date, page)
	entry, err := c.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return decode(entry)
}

// GetByDate returns the live snapshots of a date ordered by page.
func (c *Cache) GetByDate(ctx context.Context, date civil.Date) ([]*models.TransactionSnapshot, error) {
	return c.scan(ctx, datePrefix(date))
}

// GetAll returns every live snapshot ordered by date, then page.
func (c *Cache) GetAll(ctx context.Context) ([]*models.TransactionSnapshot, error) {
	return c.scan(ctx, keyPrefix)
}

func (c *Cache) scan(ctx context.Context, prefix string) ([]*models.TransactionSnapshot, error) {
	entries, err := c.kv.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshots %s: %w", prefix, err)
	}

	snapshots := make([]*models.TransactionSnapshot, 0, len(entries))
	for _, entry := range entries {
		snapshot, err := decode(entry)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	// Keys sort lexicographically, so PAGE:10 would land before PAGE:2.
	sort.SliceStable(snapshots, func(i, j int) bool {
		a, b := snapshots[i], snapshots[j]
		if a.CreatedDate != b.CreatedDate {
			return a.CreatedDate.Before(b.CreatedDate)
		}
		return a.Page < b.Page
	})
	return snapshots, nil
}

func decode(entry *kv.Entry) (*models.TransactionSnapshot, error) {
	var snapshot models.TransactionSnapshot
	if err := json.Unmarshal(entry.Value, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", entry.Key, err)
	}
	if !strings.HasPrefix(entry.Key, keyPrefix) {
		return nil, fmt.Errorf("snapshot: unexpected key %s", entry.Key)
	}
	return &snapshot, nil
}
