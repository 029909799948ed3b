package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carson-networks/transaction-sync/internal/models"
)

func TestTransition(t *testing.T) {
	nonEmpty := &models.TransactionSnapshot{Transactions: statements("t", 1)}
	empty := &models.TransactionSnapshot{}
	shortLast := &models.TransactionSnapshot{Size: 50, Transactions: statements("t", 3)}
	shortWithMore := &models.TransactionSnapshot{Size: 50, HasMore: true, Transactions: statements("t", 3)}
	fullLast := &models.TransactionSnapshot{Size: 3, Transactions: statements("t", 3)}

	tests := []struct {
		name   string
		cursor models.Cursor
		page   *models.TransactionSnapshot
		want   Plan
	}{
		{
			name:   "non-empty page advances",
			cursor: models.Cursor{ActualPage: 5, CreatedDate: jan1},
			page:   nonEmpty,
			want:   Plan{Action: ActionProcessPage, Next: models.Cursor{ActualPage: 6, CreatedDate: jan1}, Persist: true},
		},
		{
			name:   "non-empty page today still advances",
			cursor: models.Cursor{ActualPage: 1, CreatedDate: jan3},
			page:   nonEmpty,
			want:   Plan{Action: ActionProcessPage, Next: models.Cursor{ActualPage: 2, CreatedDate: jan3}, Persist: true},
		},
		{
			name:   "short last page on a past date rolls over",
			cursor: models.Cursor{ActualPage: 2, CreatedDate: jan1},
			page:   shortLast,
			want:   Plan{Action: ActionProcessLastPage, Next: models.Cursor{ActualPage: 1, CreatedDate: jan2}, Persist: true},
		},
		{
			name:   "short page with more on a past date advances",
			cursor: models.Cursor{ActualPage: 2, CreatedDate: jan1},
			page:   shortWithMore,
			want:   Plan{Action: ActionProcessPage, Next: models.Cursor{ActualPage: 3, CreatedDate: jan1}, Persist: true},
		},
		{
			name:   "full page without more on a past date advances",
			cursor: models.Cursor{ActualPage: 2, CreatedDate: jan1},
			page:   fullLast,
			want:   Plan{Action: ActionProcessPage, Next: models.Cursor{ActualPage: 3, CreatedDate: jan1}, Persist: true},
		},
		{
			name:   "short last page today advances",
			cursor: models.Cursor{ActualPage: 1, CreatedDate: jan3},
			page:   shortLast,
			want:   Plan{Action: ActionProcessPage, Next: models.Cursor{ActualPage: 2, CreatedDate: jan3}, Persist: true},
		},
		{
			name:   "empty page on a past date rolls over",
			cursor: models.Cursor{ActualPage: 7, CreatedDate: jan1},
			page:   empty,
			want:   Plan{Action: ActionRollover, Next: models.Cursor{ActualPage: 1, CreatedDate: jan2}, Persist: true},
		},
		{
			name:   "nil page counts as empty",
			cursor: models.Cursor{ActualPage: 2, CreatedDate: jan2},
			page:   nil,
			want:   Plan{Action: ActionRollover, Next: models.Cursor{ActualPage: 1, CreatedDate: jan3}, Persist: true},
		},
		{
			name:   "empty page today leaves cursor",
			cursor: models.Cursor{ActualPage: 4, CreatedDate: jan3},
			page:   empty,
			want:   Plan{Action: ActionCaughtUp, Next: models.Cursor{ActualPage: 4, CreatedDate: jan3}},
		},
		{
			name:   "empty page on a future date leaves cursor",
			cursor: models.Cursor{ActualPage: 1, CreatedDate: jan3.AddDays(1)},
			page:   empty,
			want:   Plan{Action: ActionCaughtUp, Next: models.Cursor{ActualPage: 1, CreatedDate: jan3.AddDays(1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.cursor, tt.page, jan3))
		})
	}
}

func TestAction_ProcessesPage(t *testing.T) {
	assert.True(t, ActionProcessPage.ProcessesPage())
	assert.True(t, ActionProcessLastPage.ProcessesPage())
	assert.False(t, ActionRollover.ProcessesPage())
	assert.False(t, ActionCaughtUp.ProcessesPage())
}

func TestDiff(t *testing.T) {
	base := statements("t", 3)
	changed := base[1]
	changed.Status = "REFUNDED"

	previous := &models.TransactionSnapshot{Transactions: base[:2]}
	current := &models.TransactionSnapshot{Transactions: []models.TransactionStatement{base[0], changed, base[2]}}

	got := Diff(previous, current)

	assert.Equal(t, []models.TransactionStatement{changed, base[2]}, got)
	assert.Len(t, Diff(nil, current), 3)
	assert.Empty(t, Diff(current, current))
	assert.Empty(t, Diff(previous, &models.TransactionSnapshot{}))
}
