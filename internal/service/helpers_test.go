package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"

	"github.com/carson-networks/transaction-sync/internal/config"
	"github.com/carson-networks/transaction-sync/internal/cursor"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/models"
	"github.com/carson-networks/transaction-sync/internal/snapshot"
	"github.com/carson-networks/transaction-sync/internal/storage/memory"
)

var (
	jan1 = civil.Date{Year: 2024, Month: 1, Day: 1}
	jan2 = civil.Date{Year: 2024, Month: 1, Day: 2}
	jan3 = civil.Date{Year: 2024, Month: 1, Day: 3}
)

// fakeGateway serves scripted pages; unknown pages are empty. hasMore is set when the
// following page is scripted.
type fakeGateway struct {
	mu    sync.Mutex
	pages map[string][]models.TransactionStatement
	errs  map[string]error
	calls []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages: make(map[string][]models.TransactionStatement),
		errs:  make(map[string]error),
	}
}

func pageKey(date civil.Date, page int) string {
	return fmt.Sprintf("%s/%d", date, page)
}

func (g *fakeGateway) set(date civil.Date, page int, statements ...models.TransactionStatement) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pages[pageKey(date, page)] = statements
}

func (g *fakeGateway) fail(date civil.Date, page int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[pageKey(date, page)] = err
}

func (g *fakeGateway) FetchPage(ctx context.Context, date civil.Date, page, size int) (*models.TransactionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := pageKey(date, page)
	g.calls = append(g.calls, key)
	if err := g.errs[key]; err != nil {
		return nil, err
	}
	_, hasMore := g.pages[pageKey(date, page+1)]
	return &models.TransactionSnapshot{
		Page:         page,
		Size:         size,
		CreatedDate:  date,
		HasMore:      hasMore,
		Transactions: g.pages[key],
	}, nil
}

type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) Emit(ctx context.Context, statement models.TransactionStatement) error {
	args := m.Called(ctx, statement)
	return args.Error(0)
}

// flakyCursor fails the next SetCurrentPage calls while failWrites > 0.
type flakyCursor struct {
	cursor.IStore
	failWrites int
}

func (c *flakyCursor) SetCurrentPage(ctx context.Context, next models.Cursor) error {
	if c.failWrites > 0 {
		c.failWrites--
		return errors.New("cursor store unavailable")
	}
	return c.IStore.SetCurrentPage(ctx, next)
}

type testDeps struct {
	svc       *Service
	store     *memory.Store
	gateway   *fakeGateway
	forwarder *mockForwarder
	cursor    *cursor.Store
	cache     *snapshot.Cache
	metrics   *metrics.Collector
}

func newTestService(t *testing.T, today civil.Date, maxSyncPages int) *testDeps {
	t.Helper()
	store := memory.NewStore()
	gw := newFakeGateway()
	forwarder := &mockForwarder{}
	logger, _ := test.NewNullLogger()
	collector := metrics.NewCollector()

	env := &config.Config{
		SchedulerTimezone:   "UTC",
		SyncPageSize:        50,
		SyncMaxPagesPerTick: maxSyncPages,
		GetMaxPages:         3,
		SnapshotDefaultTTL:  720 * time.Hour,
	}
	svc, err := NewService(env, Dependencies{
		Store:     store,
		Gateway:   gw,
		Forwarder: forwarder,
		Metrics:   collector,
		Logger:    logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	now := func() time.Time { return today.In(time.UTC).Add(12 * time.Hour) }
	svc.Sync.now = now
	svc.Get.now = now

	return &testDeps{
		svc:       svc,
		store:     store,
		gateway:   gw,
		forwarder: forwarder,
		cursor:    cursor.NewStore(store),
		cache:     snapshot.NewCache(store, 720*time.Hour),
		metrics:   collector,
	}
}

func statements(prefix string, n int) []models.TransactionStatement {
	out := make([]models.TransactionStatement, n)
	for i := range out {
		out[i] = models.TransactionStatement{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Type:      "PIX",
			Status:    "COMPLETED",
			Direction: models.DirectionCredit,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Currency:  "BRL",
			CreatedAt: time.Date(2024, 1, 1, 9, 0, i, 0, time.UTC),
			UpdatedAt: time.Date(2024, 1, 1, 9, 0, i, 0, time.UTC),
		}
	}
	return out
}
