package service

import (
	"github.com/carson-networks/transaction-sync/internal/models"
)

// Diff returns the statements of current that are missing from previous or differ from
// their previous version, in page order.
func Diff(previous, current *models.TransactionSnapshot) []models.TransactionStatement {
	if current.IsEmpty() {
		return nil
	}

	seen := make(map[string]models.TransactionStatement)
	if previous != nil {
		for _, statement := range previous.Transactions {
			seen[statement.ID] = statement
		}
	}

	var changed []models.TransactionStatement
	for _, statement := range current.Transactions {
		old, ok := seen[statement.ID]
		if ok && old.Equal(statement) {
			continue
		}
		changed = append(changed, statement)
	}
	return changed
}
