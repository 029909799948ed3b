package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/carson-networks/transaction-sync/internal/config"
	"github.com/carson-networks/transaction-sync/internal/storage/dynamo"
	"github.com/carson-networks/transaction-sync/internal/storage/kv"
	"github.com/carson-networks/transaction-sync/internal/storage/memory"
	"github.com/carson-networks/transaction-sync/internal/storage/sqlconfig"
)

// ErrNotFound is returned by Get when a key is absent or expired.
var ErrNotFound = kv.ErrNotFound

type IKeyValueStore = kv.IKeyValueStore

type Storage struct {
	Backend string
	KV      kv.IKeyValueStore
}

// NewStorage opens the key/value backend selected by STORAGE_BACKEND.
func NewStorage(ctx context.Context, env *config.Config) (*Storage, error) {
	var store kv.IKeyValueStore

	switch env.StorageBackend {
	case config.StorageBackendPostgres:
		db, err := sql.Open("postgres", env.PostgresConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to reach postgres at %s:%s: %w", env.PostgresAddress, env.PostgresPort, err)
		}
		store = sqlconfig.NewKVTable(db)
	case config.StorageBackendDynamoDB:
		dynamoStore, err := dynamo.NewStore(ctx, dynamo.Config{
			Region:    env.DynamoDBRegion,
			TableName: env.DynamoDBTable,
			Endpoint:  env.DynamoDBEndpoint,
		})
		if err != nil {
			return nil, err
		}
		store = dynamoStore
	case config.StorageBackendMemory:
		store = memory.NewStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", env.StorageBackend)
	}

	return &Storage{Backend: env.StorageBackend, KV: store}, nil
}

func (s *Storage) Close() error {
	return s.KV.Close()
}
