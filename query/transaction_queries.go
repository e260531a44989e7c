package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// TransactionHistoryQuery reads the append-only transaction log.
type TransactionHistoryQuery struct {
	log types.TransactionLog
}

// NewTransactionHistoryQuery constructs the history query.
func NewTransactionHistoryQuery(log types.TransactionLog) *TransactionHistoryQuery {
	return &TransactionHistoryQuery{log: log}
}

var _ gocommand.Querier[types.HistoryFilter, types.TransactionPage] = (*TransactionHistoryQuery)(nil)

// Query returns transactions ordered oldest first. Token provenance is open
// to every member; a user's history is only visible to that user. With no
// selector the actor's own history is returned.
func (q *TransactionHistoryQuery) Query(ctx context.Context, filter types.HistoryFilter) (types.TransactionPage, error) {
	if q.log == nil {
		return types.TransactionPage{}, types.ErrMissingTransactionLog
	}
	if err := filter.Validate(); err != nil {
		return types.TransactionPage{}, actorRequired()
	}
	if filter.TokenID == uuid.Nil && filter.UserID == uuid.Nil {
		filter.UserID = filter.Actor.ID
	}
	if filter.UserID != uuid.Nil && filter.UserID != filter.Actor.ID {
		return types.TransactionPage{}, historyForbidden()
	}
	return q.log.ListTransactions(ctx, filter)
}

// TransactionDetailInput identifies one transaction.
type TransactionDetailInput struct {
	Actor         types.ActorRef
	TransactionID uuid.UUID
}

// Type implements gocommand.Message.
func (TransactionDetailInput) Type() string {
	return "query.transaction.detail"
}

// Validate implements gocommand.Message.
func (input TransactionDetailInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return actorRequired()
	case input.TransactionID == uuid.Nil:
		return types.FieldValidationError("transaction_id", "transaction id is required")
	default:
		return nil
	}
}

// TransactionDetailQuery returns a single transaction to one of its
// participants.
type TransactionDetailQuery struct {
	log types.TransactionLog
}

// NewTransactionDetailQuery constructs the detail query.
func NewTransactionDetailQuery(log types.TransactionLog) *TransactionDetailQuery {
	return &TransactionDetailQuery{log: log}
}

var _ gocommand.Querier[TransactionDetailInput, *types.Transaction] = (*TransactionDetailQuery)(nil)

// Query fetches the transaction with its token ids.
func (q *TransactionDetailQuery) Query(ctx context.Context, input TransactionDetailInput) (*types.Transaction, error) {
	if q.log == nil {
		return nil, types.ErrMissingTransactionLog
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	txn, err := q.log.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if !participant(txn, input.Actor.ID) {
		return nil, historyForbidden()
	}
	return txn, nil
}
