package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/internal/config"
	"github.com/carson-networks/transaction-sync/internal/cursor"
	"github.com/carson-networks/transaction-sync/internal/gateway"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/reporting"
	"github.com/carson-networks/transaction-sync/internal/snapshot"
	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

// Service holds all business logic services.
type Service struct {
	Sync  *SyncService
	Get   *GetService
	Purge *PurgeService
	Query *QueryService
}

// Dependencies are the collaborators shared by every service.
type Dependencies struct {
	Store     kv.IKeyValueStore
	Gateway   gateway.IClient
	Forwarder reporting.IForwarder
	Metrics   *metrics.Collector
	Logger    *logrus.Logger
}

// NewService creates a new Service from the configuration and its collaborators.
func NewService(env *config.Config, deps Dependencies) (*Service, error) {
	location, err := env.Location()
	if err != nil {
		return nil, err
	}

	cursorStore := cursor.NewStore(deps.Store)
	cache := snapshot.NewCache(deps.Store, env.SnapshotDefaultTTL)
	pages := &pageProcessor{
		cache:     cache,
		forwarder: deps.Forwarder,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}

	return &Service{
		Sync: &SyncService{
			pages:    pages,
			cursor:   cursorStore,
			gateway:  deps.Gateway,
			metrics:  deps.Metrics,
			logger:   deps.Logger,
			pageSize: env.SyncPageSize,
			maxPages: env.SyncMaxPagesPerTick,
			location: location,
			now:      time.Now,
		},
		Get: &GetService{
			pages:    pages,
			cursor:   cursorStore,
			gateway:  deps.Gateway,
			metrics:  deps.Metrics,
			logger:   deps.Logger,
			pageSize: env.SyncPageSize,
			maxPages: env.GetMaxPages,
			location: location,
			now:      time.Now,
		},
		Purge: &PurgeService{
			store:   deps.Store,
			metrics: deps.Metrics,
		},
		Query: &QueryService{
			cache:  cache,
			cursor: cursorStore,
		},
	}, nil
}
