package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money entered or left the wallet.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// Party is one side of a gateway transaction.
type Party struct {
	Name          string `json:"name"`
	Document      string `json:"document"`
	DocumentType  string `json:"documentType"`
	BankCode      string `json:"bankCode"`
	Branch        string `json:"branch"`
	AccountNumber string `json:"accountNumber"`
}

// TransactionStatement is the gateway's transaction record as returned by a page fetch.
type TransactionStatement struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Direction Direction       `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Payer     Party           `json:"payer"`
	Payee     Party           `json:"payee"`
}

// Equal reports whether two statements carry the same data.
// Amounts are compared numerically so "10.0" and "10.00" are the same value.
func (t TransactionStatement) Equal(other TransactionStatement) bool {
	return t.ID == other.ID &&
		t.Type == other.Type &&
		t.Status == other.Status &&
		t.Direction == other.Direction &&
		t.Amount.Equal(other.Amount) &&
		t.Currency == other.Currency &&
		t.CreatedAt.Equal(other.CreatedAt) &&
		t.UpdatedAt.Equal(other.UpdatedAt) &&
		t.Payer == other.Payer &&
		t.Payee == other.Payee
}
