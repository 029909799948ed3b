package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/transaction-sync/internal/config"
	"github.com/carson-networks/transaction-sync/internal/lease"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/models"
	"github.com/carson-networks/transaction-sync/internal/scheduler"
	"github.com/carson-networks/transaction-sync/internal/service"
	"github.com/carson-networks/transaction-sync/internal/snapshot"
	"github.com/carson-networks/transaction-sync/internal/storage/memory"
)

type unusedGateway struct{}

func (unusedGateway) FetchPage(ctx context.Context, date civil.Date, page, size int) (*models.TransactionSnapshot, error) {
	return &models.TransactionSnapshot{Page: page, Size: size, CreatedDate: date}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memory.NewStore()
	collector := metrics.NewCollector()

	svc, err := service.NewService(&config.Config{
		SchedulerTimezone:   "UTC",
		SyncPageSize:        50,
		SyncMaxPagesPerTick: 1,
		GetMaxPages:         1,
		SnapshotDefaultTTL:  time.Hour,
	}, service.Dependencies{Store: store, Gateway: unusedGateway{}, Metrics: collector, Logger: logger})
	require.NoError(t, err)

	sched := scheduler.New(lease.NewLocker(store, logger), time.UTC, logger, collector)
	require.NoError(t, sched.Add(scheduler.Job{
		Name:         service.JobPurge,
		Schedule:     "@hourly",
		LockKey:      scheduler.PurgeLockKey,
		LeaseTimeout: time.Minute,
		LeaseRefresh: 10 * time.Second,
		Run:          svc.Purge.Run,
	}))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Stop(ctx)
	})

	rest := &Rest{
		Logger:         logger,
		StorageBackend: "memory",
		Service:        svc,
		Scheduler:      sched,
		Metrics:        collector,
	}
	server := httptest.NewServer(rest.Routes())
	t.Cleanup(server.Close)
	return server, store
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRoutes_Status(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/status")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRoutes_Metrics(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/metrics")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_CursorNotFoundThenFound(t *testing.T) {
	server, store := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, server.URL+"/v1/cursor").StatusCode)

	require.NoError(t, store.Put(context.Background(), "transaction_current_pages", []byte(`{"actualPage":3,"createdDate":"2024-01-01"}`), 0))
	assert.Equal(t, http.StatusOK, get(t, server.URL+"/v1/cursor").StatusCode)
}

func TestRoutes_Snapshots(t *testing.T) {
	server, store := newTestServer(t)
	cache := snapshot.NewCache(store, time.Hour)
	require.NoError(t, cache.Upsert(context.Background(), &models.TransactionSnapshot{
		Page:         1,
		Size:         50,
		CreatedDate:  civil.Date{Year: 2024, Month: 1, Day: 1},
		Transactions: []models.TransactionStatement{{ID: "t1", Direction: models.DirectionCredit}},
	}))

	assert.Equal(t, http.StatusOK, get(t, server.URL+"/v1/snapshots?date=2024-01-01").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, server.URL+"/v1/snapshots/all").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, server.URL+"/v1/snapshots?date=yesterday").StatusCode)
}

func TestRoutes_TriggerJob(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/v1/jobs/purge/trigger", "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(server.URL+"/v1/jobs/reconcile/trigger", "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
