package service

import (
	"cloud.google.com/go/civil"

	"github.com/carson-networks/transaction-sync/internal/models"
)

// Action is what a sync tick does with a fetched page.
type Action int

const (
	// ActionProcessPage forwards and caches a non-empty page, then moves to the next page.
	ActionProcessPage Action = iota
	// ActionRollover moves a finished past date on to the following day.
	ActionRollover
	// ActionCaughtUp leaves the cursor alone: today has no more pages yet.
	ActionCaughtUp
	// ActionProcessLastPage forwards and caches the final page of a past date, then moves
	// on to the following day without fetching the empty page after it.
	ActionProcessLastPage
)

func (a Action) String() string {
	switch a {
	case ActionProcessPage:
		return "process"
	case ActionRollover:
		return "rollover"
	case ActionCaughtUp:
		return "caughtUp"
	case ActionProcessLastPage:
		return "processLastPage"
	default:
		return "unknown"
	}
}

// ProcessesPage reports whether the fetched page must be forwarded and cached.
func (a Action) ProcessesPage() bool {
	return a == ActionProcessPage || a == ActionProcessLastPage
}

// Plan is the outcome of Transition.
type Plan struct {
	Action Action
	Next   models.Cursor
	// Persist is false when the cursor does not change.
	Persist bool
}

// Transition decides the next cursor from the current one, the page fetched for it and
// today's date. It has no side effects.
func Transition(cursor models.Cursor, page *models.TransactionSnapshot, today civil.Date) Plan {
	if page.IsLastPage() && cursor.CreatedDate.Before(today) {
		return Plan{
			Action:  ActionProcessLastPage,
			Next:    models.NewCursor(cursor.CreatedDate.AddDays(1)),
			Persist: true,
		}
	}

	if !page.IsEmpty() {
		return Plan{
			Action:  ActionProcessPage,
			Next:    models.Cursor{ActualPage: cursor.ActualPage + 1, CreatedDate: cursor.CreatedDate},
			Persist: true,
		}
	}

	if cursor.CreatedDate.Before(today) {
		return Plan{
			Action:  ActionRollover,
			Next:    models.NewCursor(cursor.CreatedDate.AddDays(1)),
			Persist: true,
		}
	}

	return Plan{Action: ActionCaughtUp, Next: cursor}
}
