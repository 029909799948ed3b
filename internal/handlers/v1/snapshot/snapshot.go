package snapshot

import (
	"time"

	"github.com/carson-networks/transaction-sync/internal/models"
)

// Party is the API response model for one side of a transaction.
type Party struct {
	Name          string `json:"name"`
	Document      string `json:"document"`
	DocumentType  string `json:"documentType"`
	BankCode      string `json:"bankCode"`
	Branch        string `json:"branch"`
	AccountNumber string `json:"accountNumber"`
}

// Transaction is the API response model for a cached gateway transaction.
type Transaction struct {
	ID        string `json:"id" doc:"Gateway operation id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Direction string `json:"direction" enum:"CREDIT,DEBIT"`
	Amount    string `json:"amount" doc:"Decimal amount"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"createdAt" doc:"RFC3339 creation time"`
	UpdatedAt string `json:"updatedAt" doc:"RFC3339 last update time"`
	Payer     Party  `json:"payer"`
	Payee     Party  `json:"payee"`
}

// Snapshot is the API response model for one cached gateway page.
type Snapshot struct {
	Date         string        `json:"date" doc:"Calendar date of the page, YYYY-MM-DD"`
	Page         int           `json:"page"`
	Size         int           `json:"size"`
	HasMore      bool          `json:"hasMore"`
	Transactions []Transaction `json:"transactions"`
}

func toParty(p models.Party) Party {
	return Party{
		Name:          p.Name,
		Document:      p.Document,
		DocumentType:  p.DocumentType,
		BankCode:      p.BankCode,
		Branch:        p.Branch,
		AccountNumber: p.AccountNumber,
	}
}

func toSnapshots(snapshots []*models.TransactionSnapshot) []Snapshot {
	out := make([]Snapshot, len(snapshots))
	for i, s := range snapshots {
		out[i] = Snapshot{
			Date:         s.CreatedDate.String(),
			Page:         s.Page,
			Size:         s.Size,
			HasMore:      s.HasMore,
			Transactions: make([]Transaction, len(s.Transactions)),
		}
		for j, tx := range s.Transactions {
			out[i].Transactions[j] = Transaction{
				ID:        tx.ID,
				Type:      tx.Type,
				Status:    tx.Status,
				Direction: string(tx.Direction),
				Amount:    tx.Amount.String(),
				Currency:  tx.Currency,
				CreatedAt: tx.CreatedAt.Format(time.RFC3339),
				UpdatedAt: tx.UpdatedAt.Format(time.RFC3339),
				Payer:     toParty(tx.Payer),
				Payee:     toParty(tx.Payee),
			}
		}
	}
	return out
}
