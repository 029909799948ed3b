package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// TransactionSnapshot is one fetched gateway page, cached verbatim.
type TransactionSnapshot struct {
	Page         int                    `json:"page"`
	Size         int                    `json:"size"`
	CreatedDate  civil.Date             `json:"createdDate"`
	TTL          time.Duration          `json:"ttl,omitempty"`
	HasMore      bool                   `json:"hasMore"`
	Transactions []TransactionStatement `json:"transactions"`
}

// IsEmpty reports whether the page carried no transactions, which ends pagination for its date.
func (s *TransactionSnapshot) IsEmpty() bool {
	return s == nil || len(s.Transactions) == 0
}

// IsLastPage reports whether a non-empty page is known to close its date: the gateway said
// there is nothing after it and it came back shorter than the requested size.
func (s *TransactionSnapshot) IsLastPage() bool {
	return !s.IsEmpty() && !s.HasMore && s.Size > 0 && len(s.Transactions) < s.Size
}
