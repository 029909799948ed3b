package sqlconfig

import (
	"time"

	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

const kvTableName = "kv_entries"

// kvRow mirrors a kv_entries row.
type kvRow struct {
	Key       string     `db:"key"`
	Value     []byte     `db:"value"`
	ExpiresAt *time.Time `db:"expires_at"`
}

func kvRowToEntry(row kvRow) *kv.Entry {
	return &kv.Entry{
		Key:       row.Key,
		Value:     row.Value,
		ExpiresAt: row.ExpiresAt,
	}
}

// ttlArg renders a ttl as the millisecond argument of expiresAtExpr.
// NULL makes the whole expression NULL, which stores a non-expiring entry.
func ttlArg(ttl time.Duration) any {
	if ttl <= 0 {
		return nil
	}
	return ttl.Milliseconds()
}
