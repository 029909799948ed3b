package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/transaction-sync/internal/models"
)

// -- GetService tests --

func TestGet_StartsBeforeCursorOnToday(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	require.NoError(t, d.cursor.SetCurrentPage(ctx, models.Cursor{ActualPage: 4, CreatedDate: jan3}))
	d.gateway.set(jan3, 3, statements("p3", 2)...)
	d.gateway.set(jan3, 4, statements("p4", 1)...)
	d.gateway.set(jan3, 5, statements("p5", 1)...)
	d.forwarder.On("Emit", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, d.svc.Get.Run(ctx))

	assert.Equal(t, []string{"2024-01-03/3", "2024-01-03/4", "2024-01-03/5"}, d.gateway.calls)
	d.forwarder.AssertNumberOfCalls(t, "Emit", 4)
	requireCursor(t, d, models.Cursor{ActualPage: 4, CreatedDate: jan3})
}

func TestGet_StopsAtFirstEmptyPage(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	d.gateway.set(jan3, 1, statements("p1", 1)...)
	d.forwarder.On("Emit", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, d.svc.Get.Run(ctx))

	assert.Equal(t, []string{"2024-01-03/1", "2024-01-03/2"}, d.gateway.calls)
	cur, err := d.cursor.GetCurrentPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur, "get never writes the cursor")
}

func TestGet_CursorOnPastDateStartsAtPageOne(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	require.NoError(t, d.cursor.SetCurrentPage(ctx, models.Cursor{ActualPage: 9, CreatedDate: jan1}))

	require.NoError(t, d.svc.Get.Run(ctx))

	assert.Equal(t, []string{"2024-01-03/1"}, d.gateway.calls)
	requireCursor(t, d, models.Cursor{ActualPage: 9, CreatedDate: jan1})
}

func TestGet_CursorOnFirstPageStartsAtOne(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	require.NoError(t, d.cursor.SetCurrentPage(ctx, models.Cursor{ActualPage: 1, CreatedDate: jan3}))

	require.NoError(t, d.svc.Get.Run(ctx))

	assert.Equal(t, []string{"2024-01-03/1"}, d.gateway.calls)
}

func TestGet_OnlyForwardsChanges(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	d.gateway.set(jan3, 1, statements("p1", 3)...)
	d.forwarder.On("Emit", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, d.svc.Get.Run(ctx))
	require.NoError(t, d.svc.Get.Run(ctx))

	d.forwarder.AssertNumberOfCalls(t, "Emit", 3)
}

func TestGet_SharesCacheWithSync(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	d.gateway.set(jan3, 1, statements("p1", 2)...)
	d.forwarder.On("Emit", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, d.svc.Get.Run(ctx))
	require.NoError(t, d.svc.Sync.Run(ctx))

	d.forwarder.AssertNumberOfCalls(t, "Emit", 2)
	requireCursor(t, d, models.Cursor{ActualPage: 2, CreatedDate: jan3})
}

func TestGet_GatewayError(t *testing.T) {
	d := newTestService(t, jan3, 1)
	d.gateway.fail(jan3, 1, errors.New("timeout"))

	assert.Error(t, d.svc.Get.Run(context.Background()))
}

// -- PurgeService tests --

func TestPurge_RemovesExpiredEntries(t *testing.T) {
	d := newTestService(t, jan3, 1)
	ctx := context.Background()
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	d.store.SetClock(func() time.Time { return now })
	require.NoError(t, d.store.Put(ctx, "transactions:DATE:2024-01-01:PAGE:1", []byte(`{}`), time.Hour))
	require.NoError(t, d.store.Put(ctx, "transaction_current_pages", []byte(`{}`), 0))

	now = now.Add(2 * time.Hour)
	require.NoError(t, d.svc.Purge.Run(ctx))

	assert.Equal(t, 1, d.store.Len())
}

// -- QueryService tests --

func TestQuery_ReadsCacheAndCursor(t *testing.T) {
	d := newTestService(t, jan1, 1)
	ctx := context.Background()
	d.gateway.set(jan1, 1, statements("t", 1)...)
	d.forwarder.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, d.svc.Sync.Run(ctx))

	byDate, err := d.svc.Query.SnapshotsByDate(ctx, jan1)
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	all, err := d.svc.Query.AllSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	cur, err := d.svc.Query.CurrentCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Cursor{ActualPage: 2, CreatedDate: jan1}, cur)
}
