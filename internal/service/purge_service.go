package service

import (
	"context"
	"fmt"

	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

const JobPurge = "purge"

// PurgeService removes expired entries from backends that do not evict them on their own.
type PurgeService struct {
	store   kv.IKeyValueStore
	metrics *metrics.Collector
}

func (s *PurgeService) Run(ctx context.Context) error {
	removed, err := s.store.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired entries: %w", err)
	}
	s.metrics.RecordPurged(removed)
	logging.GetLogData(ctx).AddData("removed", removed)
	return nil
}
