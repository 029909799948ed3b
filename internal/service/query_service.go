package service

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/carson-networks/transaction-sync/internal/cursor"
	"github.com/carson-networks/transaction-sync/internal/models"
	"github.com/carson-networks/transaction-sync/internal/snapshot"
)

// QueryService serves the read API. Reads are not coordinated with the jobs and may be stale.
type QueryService struct {
	cache  snapshot.ICache
	cursor cursor.IStore
}

func (s *QueryService) SnapshotsByDate(ctx context.Context, date civil.Date) ([]*models.TransactionSnapshot, error) {
	return s.cache.GetByDate(ctx, date)
}

func (s *QueryService) AllSnapshots(ctx context.Context) ([]*models.TransactionSnapshot, error) {
	return s.cache.GetAll(ctx)
}

// CurrentCursor returns nil when sync has never persisted a cursor.
func (s *QueryService) CurrentCursor(ctx context.Context) (*models.Cursor, error) {
	return s.cursor.GetCurrentPage(ctx)
}
