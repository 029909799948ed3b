package models

import (
	"errors"

	"cloud.google.com/go/civil"
)

var ErrInvalidCursor = errors.New("cursor: actualPage must be >= 1 and createdDate must be valid")

// Cursor records the next page to fetch for a date.
type Cursor struct {
	ActualPage  int        `json:"actualPage"`
	CreatedDate civil.Date `json:"createdDate"`
}

// NewCursor returns the starting cursor for a date.
func NewCursor(date civil.Date) Cursor {
	return Cursor{ActualPage: 1, CreatedDate: date}
}

func (c Cursor) Validate() error {
	if c.ActualPage < 1 || !c.CreatedDate.IsValid() {
		return ErrInvalidCursor
	}
	return nil
}
