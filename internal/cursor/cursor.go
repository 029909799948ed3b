package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/carson-networks/transaction-sync/internal/models"
	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

// Key is the store key of the singleton cursor.
const Key = "transaction_current_pages"

type IStore interface {
	GetCurrentPage(ctx context.Context) (*models.Cursor, error)
	SetCurrentPage(ctx context.Context, cursor models.Cursor) error
}

var _ IStore = (*Store)(nil)

// Store persists the pagination cursor. It never expires and the last write wins.
type Store struct {
	kv kv.IKeyValueStore
}

func NewStore(store kv.IKeyValueStore) *Store {
	return &Store{kv: store}
}

// GetCurrentPage returns nil when no cursor has been written yet.
func (s *Store) GetCurrentPage(ctx context.Context) (*models.Cursor, error) {
	entry, err := s.kv.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}

	var cursor models.Cursor
	if err := json.Unmarshal(entry.Value, &cursor); err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	if err := cursor.Validate(); err != nil {
		return nil, fmt.Errorf("stored cursor %s: %w", entry.Value, err)
	}
	return &cursor, nil
}

func (s *Store) SetCurrentPage(ctx context.Context, cursor models.Cursor) error {
	if err := cursor.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to encode cursor: %w", err)
	}
	if err := s.kv.Put(ctx, Key, value, 0); err != nil {
		return fmt.Errorf("failed to write cursor: %w", err)
	}
	return nil
}
