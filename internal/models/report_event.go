package models

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// PartyRef identifies a person or company in a report event.
type PartyRef struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Type     string `json:"type"`
}

// ReportEvent is the canonical message sent to the reporting pipeline.
// Downstream deduplicates on OperationID.
type ReportEvent struct {
	ID                 uuid.UUID       `json:"id"`
	OperationID        string          `json:"operationId"`
	OperationDate      time.Time       `json:"operationDate"`
	OperationValue     decimal.Decimal `json:"operationValue"`
	OperationType      string          `json:"operationType"`
	TransactionTypeTag string          `json:"transactionTypeTag"`
	ThirdParty         PartyRef        `json:"thirdParty"`
	Client             PartyRef        `json:"client"`
	BankCode           string          `json:"bankCode"`
	Branch             string          `json:"branch"`
	AccountNumber      string          `json:"accountNumber"`
	CurrencySymbol     string          `json:"currencySymbol"`
}
