package ledger

import (
	"time"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenRecord models the persisted time_tokens row.
type TokenRecord struct {
	bun.BaseModel `bun:"table:time_tokens"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	IssuerID           uuid.UUID  `bun:"issuer_id,notnull,type:uuid" json:"issuer_id"`
	CurrentOwnerID     uuid.UUID  `bun:"current_owner_id,notnull,type:uuid" json:"current_owner_id"`
	Denomination       int        `bun:"denomination,notnull" json:"denomination"`
	IsActive           bool       `bun:"is_active,notnull" json:"is_active"`
	ExpiresAt          *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	DeactivatedAt      *time.Time `bun:"deactivated_at,nullzero" json:"deactivated_at,omitempty"`
	DeactivationReason string     `bun:"deactivation_reason,nullzero" json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// TransactionRecord models the persisted token_transactions row.
type TransactionRecord struct {
	bun.BaseModel `bun:"table:token_transactions"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	SenderID       uuid.UUID `bun:"sender_id,notnull,type:uuid" json:"sender_id"`
	RecipientID    uuid.UUID `bun:"recipient_id,notnull,type:uuid" json:"recipient_id"`
	ServiceID      uuid.UUID `bun:"service_id,nullzero,type:uuid" json:"service_id,omitempty"`
	Status         string    `bun:"status,notnull" json:"status"`
	IdempotencyKey string    `bun:"idempotency_key,nullzero" json:"idempotency_key,omitempty"`
	TokenCount     int       `bun:"token_count,notnull" json:"token_count"`
	TotalMinutes   int       `bun:"total_minutes,notnull" json:"total_minutes"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

// TransferRecord links a token to the transaction that moved it.
type TransferRecord struct {
	bun.BaseModel `bun:"table:token_transfers"`

	TransactionID uuid.UUID `bun:"transaction_id,pk,type:uuid" json:"transaction_id"`
	TokenID       uuid.UUID `bun:"token_id,pk,type:uuid" json:"token_id"`
}

// TokenRecordFromDomain converts a domain token into its row shape.
func TokenRecordFromDomain(token types.TimeToken) *TokenRecord {
	return fromTokenDomain(token)
}

// TransactionRecordFromDomain converts a domain transaction into its row
// shape. Token links live in token_transfers and are not carried.
func TransactionRecordFromDomain(txn types.Transaction) *TransactionRecord {
	return &TransactionRecord{
		ID:             txn.ID,
		SenderID:       txn.SenderID,
		RecipientID:    txn.RecipientID,
		ServiceID:      txn.ServiceID,
		Status:         string(txn.Status),
		IdempotencyKey: txn.IdempotencyKey,
		TokenCount:     txn.TokenCount,
		TotalMinutes:   txn.TotalMinutes,
		CreatedAt:      txn.CreatedAt,
	}
}
