package types

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TokenState is the coarse state of a time token.
type TokenState string

const (
	TokenStateActive   TokenState = "active"
	TokenStateInactive TokenState = "inactive"
)

// DeactivationReason records why a token left the active state.
type DeactivationReason string

const (
	DeactivationExpired DeactivationReason = "expired"
	DeactivationRevoked DeactivationReason = "revoked"
)

// TimeToken is an individually identified unit of committed service minutes.
// Denomination and issuer never change after issuance; the owner changes only
// through transfers and IsActive only moves from true to false.
type TimeToken struct {
	ID                 uuid.UUID
	IssuerID           uuid.UUID
	OwnerID            uuid.UUID
	Denomination       int
	IsActive           bool
	ExpiresAt          time.Time
	DeactivatedAt      time.Time
	DeactivationReason DeactivationReason
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expired reports whether the token expiry has been reached at now.
func (t TimeToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Spendable reports whether the token can be moved by a transfer at now.
func (t TimeToken) Spendable(now time.Time) bool {
	return t.IsActive && !t.Expired(now)
}

// State returns the token state at now. Tokens past their expiry are treated
// as inactive even before the expiry sweep flips the stored flag.
func (t TimeToken) State(now time.Time) TokenState {
	if t.Spendable(now) {
		return TokenStateActive
	}
	return TokenStateInactive
}

// TransactionStatus enumerates transaction outcomes. Only completed
// transactions are persisted since transfers are atomic.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is the immutable record of one completed transfer.
type Transaction struct {
	ID             uuid.UUID
	SenderID       uuid.UUID
	RecipientID    uuid.UUID
	ServiceID      uuid.UUID
	Status         TransactionStatus
	IdempotencyKey string
	TokenIDs       []uuid.UUID
	TokenCount     int
	TotalMinutes   int
	CreatedAt      time.Time
}

// TokenTransfer links a token to the transaction that moved it.
type TokenTransfer struct {
	TransactionID uuid.UUID
	TokenID       uuid.UUID
}

// TransferPlan is the validated request handed to the store. TokenIDs must be
// unique and sorted so every unit of work locks rows in the same order. The
// store stamps the transaction time itself once the tokens are locked.
type TransferPlan struct {
	TransactionID  uuid.UUID
	SenderID       uuid.UUID
	RecipientID    uuid.UUID
	ServiceID      uuid.UUID
	TokenIDs       []uuid.UUID
	IdempotencyKey string
}

// SortTokenIDs returns a sorted copy of ids using the byte order both
// supported databases apply to uuid columns.
func SortTokenIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

// TransferResult is returned by the store after a transfer commits or an
// idempotent replay is detected.
type TransferResult struct {
	Transaction Transaction
	Replayed    bool
}

// DeactivateInput describes a single token deactivation. When ExpectedOwner
// is set the store only deactivates the token while it is still owned by it.
type DeactivateInput struct {
	TokenID       uuid.UUID
	ExpectedOwner uuid.UUID
	Reason        DeactivationReason
	At            time.Time
}

// TokenFilter narrows wallet listings.
type TokenFilter struct {
	OwnerID    uuid.UUID
	IssuerID   uuid.UUID
	ActiveOnly bool
	Now        time.Time
	Pagination Pagination
}

// TokenPage is a paginated list of tokens plus the spendable minute balance of
// the matched set.
type TokenPage struct {
	Tokens        []TimeToken
	Total         int
	ActiveMinutes int
	NextOffset    int
	HasMore       bool
}

// HistoryFilter selects transactions by token or participant. Results are
// ordered by creation time, oldest first.
type HistoryFilter struct {
	Actor      ActorRef
	TokenID    uuid.UUID
	UserID     uuid.UUID
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (HistoryFilter) Type() string {
	return "query.transaction.history"
}

// Validate implements gocommand.Message.
func (filter HistoryFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// TransactionPage is a paginated slice of the transaction log.
type TransactionPage struct {
	Transactions []Transaction
	Total        int
	NextOffset   int
	HasMore      bool
}

// TokenStore is the durable ledger contract. ExecuteTransfer must run the
// validate, mutate and record passes inside one atomic unit with isolation
// that prevents concurrent transfers from validating stale ownership.
type TokenStore interface {
	CreateToken(ctx context.Context, token TimeToken) (*TimeToken, error)
	GetToken(ctx context.Context, id uuid.UUID) (*TimeToken, error)
	ListTokens(ctx context.Context, filter TokenFilter) (TokenPage, error)
	ExecuteTransfer(ctx context.Context, plan TransferPlan) (TransferResult, error)
	DeactivateToken(ctx context.Context, input DeactivateInput) (*TimeToken, error)
	DeactivateExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// TransactionLog exposes the append-only transfer history.
type TransactionLog interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter HistoryFilter) (TransactionPage, error)
}

// IdentityResolver maps an opaque caller credential to a stable user id.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (uuid.UUID, error)
}
