package sqlconfig

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

// Expiry is always computed from the database clock so every replica agrees on it.
const (
	expiresAtExpr = "now() + (?::bigint * interval '1 millisecond')"
	liveCondition = "(expires_at IS NULL OR expires_at > now())"
)

// Ensure KVTable implements kv.IKeyValueStore at compile time.
var _ kv.IKeyValueStore = (*KVTable)(nil)

// KVTable provides the shared key/value store on top of the kv_entries table.
type KVTable struct {
	db   *sql.DB
	exec bob.Executor
}

// NewKVTable creates a KVTable for the given database.
func NewKVTable(db *sql.DB) *KVTable {
	return &KVTable{db: db, exec: bob.NewDB(db)}
}

// SetIfAbsent inserts the entry, or takes over a row whose entry has already expired.
func (t *KVTable) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	q := psql.RawQuery(
		`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, `+expiresAtExpr+`)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()`,
		key, value, ttlArg(ttl),
	)
	return t.execAffected(ctx, q)
}

// CompareAndExpire pushes the expiry of a live entry forward when it still holds value.
func (t *KVTable) CompareAndExpire(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	q := psql.RawQuery(
		`UPDATE kv_entries SET expires_at = `+expiresAtExpr+`
		WHERE key = ? AND value = ? AND `+liveCondition,
		ttlArg(ttl), key, value,
	)
	return t.execAffected(ctx, q)
}

// CompareAndDelete deletes key when it still holds value.
func (t *KVTable) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	q := psql.Delete(
		dm.From(kvTableName),
		dm.Where(psql.Quote("key").EQ(psql.Arg(key))),
		dm.Where(psql.Quote("value").EQ(psql.Arg(value))),
	)
	return t.execAffected(ctx, q)
}

// Put upserts the entry unconditionally.
func (t *KVTable) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	q := psql.RawQuery(
		`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, `+expiresAtExpr+`)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, ttlArg(ttl),
	)
	_, err := bob.Exec(ctx, t.exec, q)
	return err
}

// Get retrieves a live entry by key.
func (t *KVTable) Get(ctx context.Context, key string) (*kv.Entry, error) {
	q := psql.Select(
		sm.Columns("key", "value", "expires_at"),
		sm.From(kvTableName),
		sm.Where(psql.Quote("key").EQ(psql.Arg(key))),
		sm.Where(psql.Raw(liveCondition)),
	)
	row, err := bob.One(ctx, t.exec, q, scan.StructMapper[kvRow]())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return kvRowToEntry(row), nil
}

// ScanPrefix lists live entries whose key starts with prefix.
func (t *KVTable) ScanPrefix(ctx context.Context, prefix string) ([]*kv.Entry, error) {
	q := psql.Select(
		sm.Columns("key", "value", "expires_at"),
		sm.From(kvTableName),
		sm.Where(psql.Quote("key").Like(psql.Arg(kv.EscapeLike(prefix)+"%"))),
		sm.Where(psql.Raw(liveCondition)),
		sm.OrderBy(psql.Quote("key")).Asc(),
	)
	rows, err := bob.All(ctx, t.exec, q, scan.StructMapper[kvRow]())
	if err != nil {
		return nil, err
	}
	result := make([]*kv.Entry, len(rows))
	for i, row := range rows {
		result[i] = kvRowToEntry(row)
	}
	return result, nil
}

// PurgeExpired deletes rows whose entry has expired.
func (t *KVTable) PurgeExpired(ctx context.Context) (int64, error) {
	q := psql.Delete(
		dm.From(kvTableName),
		dm.Where(psql.Raw("expires_at IS NOT NULL AND expires_at <= now()")),
	)
	res, err := bob.Exec(ctx, t.exec, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *KVTable) Close() error {
	return t.db.Close()
}

func (t *KVTable) execAffected(ctx context.Context, q bob.Query) (bool, error) {
	res, err := bob.Exec(ctx, t.exec, q)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
