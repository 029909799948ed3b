package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/transaction-sync/internal/models"
)

// ErrUnknownDirection is returned for statements that are neither CREDIT nor DEBIT.
var ErrUnknownDirection = errors.New("reporting: unknown transaction direction")

var eventNamespace = uuid.NewV5(uuid.NamespaceURL, "transaction-sync/report-event")

var currencySymbols = map[string]string{
	"BRL": "R$",
	"USD": "$",
	"EUR": "€",
}

type IPublisher interface {
	Publish(ctx context.Context, event models.ReportEvent) error
}

type IForwarder interface {
	Emit(ctx context.Context, statement models.TransactionStatement) error
}

var _ IForwarder = (*Forwarder)(nil)

// Forwarder turns gateway statements into report events and publishes them.
type Forwarder struct {
	publisher IPublisher
}

func NewForwarder(publisher IPublisher) *Forwarder {
	return &Forwarder{publisher: publisher}
}

// Emit publishes one statement and returns once the publisher accepted it.
func (f *Forwarder) Emit(ctx context.Context, statement models.TransactionStatement) error {
	event, err := BuildEvent(statement)
	if err != nil {
		return err
	}
	if err := f.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish operation %s: %w", statement.ID, err)
	}
	return nil
}

// BuildEvent maps a statement onto the report event. The client is the wallet owner's
// side of the transaction, the third party is the other side.
func BuildEvent(statement models.TransactionStatement) (models.ReportEvent, error) {
	var client, thirdParty models.Party
	var operationType string

	switch statement.Direction {
	case models.DirectionCredit:
		client, thirdParty, operationType = statement.Payee, statement.Payer, "C"
	case models.DirectionDebit:
		client, thirdParty, operationType = statement.Payer, statement.Payee, "D"
	default:
		return models.ReportEvent{}, fmt.Errorf("%w: %q on operation %s", ErrUnknownDirection, statement.Direction, statement.ID)
	}

	return models.ReportEvent{
		ID:                 EventID(statement),
		OperationID:        statement.ID,
		OperationDate:      statement.CreatedAt,
		OperationValue:     statement.Amount,
		OperationType:      operationType,
		TransactionTypeTag: statement.Type,
		ThirdParty:         partyRef(thirdParty),
		Client:             partyRef(client),
		BankCode:           thirdParty.BankCode,
		Branch:             thirdParty.Branch,
		AccountNumber:      thirdParty.AccountNumber,
		CurrencySymbol:     CurrencySymbol(statement.Currency),
	}, nil
}

// EventID is stable for a given version of a statement.
func EventID(statement models.TransactionStatement) uuid.UUID {
	return uuid.NewV5(eventNamespace, statement.ID+":"+statement.UpdatedAt.UTC().Format(time.RFC3339Nano))
}

func CurrencySymbol(code string) string {
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	return code
}

func partyRef(p models.Party) models.PartyRef {
	return models.PartyRef{
		Name:     p.Name,
		Document: p.Document,
		Type:     p.DocumentType,
	}
}
