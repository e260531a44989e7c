package api

import (
	"time"

	"github.com/goliatone/go-timebank/command"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// TokenView is the JSON shape of a time token.
type TokenView struct {
	ID                 uuid.UUID  `json:"id"`
	IssuerID           uuid.UUID  `json:"issuer_id"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	Denomination       int        `json:"denomination"`
	IsActive           bool       `json:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// WalletView lists the tokens of one owner with the spendable balance.
type WalletView struct {
	OwnerID       uuid.UUID   `json:"owner_id"`
	Tokens        []TokenView `json:"tokens"`
	Total         int         `json:"total"`
	ActiveMinutes int         `json:"active_minutes"`
	NextOffset    int         `json:"next_offset"`
	HasMore       bool        `json:"has_more"`
}

// TransactionView is the JSON shape of a committed transfer.
type TransactionView struct {
	ID             uuid.UUID   `json:"id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	RecipientID    uuid.UUID   `json:"recipient_id"`
	ServiceID      *uuid.UUID  `json:"service_id,omitempty"`
	Status         string      `json:"status"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	TokenIDs       []uuid.UUID `json:"token_ids"`
	TokenCount     int         `json:"token_count"`
	TotalMinutes   int         `json:"total_minutes"`
	CreatedAt      time.Time   `json:"created_at"`
}

// HistoryView is a page of transactions.
type HistoryView struct {
	Transactions []TransactionView `json:"transactions"`
	Total        int               `json:"total"`
	NextOffset   int               `json:"next_offset"`
	HasMore      bool              `json:"has_more"`
}

// TransferView acknowledges a committed or replayed transfer.
type TransferView struct {
	TransactionID uuid.UUID   `json:"transaction_id"`
	Transferred   []uuid.UUID `json:"transferred"`
	TokenCount    int         `json:"token_count"`
	TotalMinutes  int         `json:"total_minutes"`
	Replayed      bool        `json:"replayed"`
}

// ActivityView is one entry of the caller's activity feed.
type ActivityView struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id,omitempty"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// ActivityFeedView is a page of activity entries.
type ActivityFeedView struct {
	Records []ActivityView `json:"records"`
	Total   int            `json:"total"`
	HasMore bool           `json:"has_more"`
}

func tokenView(token types.TimeToken) TokenView {
	return TokenView{
		ID:                 token.ID,
		IssuerID:           token.IssuerID,
		OwnerID:            token.OwnerID,
		Denomination:       token.Denomination,
		IsActive:           token.IsActive,
		ExpiresAt:          optionalTime(token.ExpiresAt),
		DeactivatedAt:      optionalTime(token.DeactivatedAt),
		DeactivationReason: string(token.DeactivationReason),
		CreatedAt:          token.CreatedAt,
	}
}

func walletView(owner uuid.UUID, page types.TokenPage) WalletView {
	tokens := make([]TokenView, 0, len(page.Tokens))
	for _, token := range page.Tokens {
		tokens = append(tokens, tokenView(token))
	}
	return WalletView{
		OwnerID:       owner,
		Tokens:        tokens,
		Total:         page.Total,
		ActiveMinutes: page.ActiveMinutes,
		NextOffset:    page.NextOffset,
		HasMore:       page.HasMore,
	}
}

func transactionView(txn types.Transaction) TransactionView {
	view := TransactionView{
		ID:             txn.ID,
		SenderID:       txn.SenderID,
		RecipientID:    txn.RecipientID,
		Status:         string(txn.Status),
		IdempotencyKey: txn.IdempotencyKey,
		TokenIDs:       append([]uuid.UUID{}, txn.TokenIDs...),
		TokenCount:     txn.TokenCount,
		TotalMinutes:   txn.TotalMinutes,
		CreatedAt:      txn.CreatedAt,
	}
	if txn.ServiceID != uuid.Nil {
		id := txn.ServiceID
		view.ServiceID = &id
	}
	return view
}

func historyView(page types.TransactionPage) HistoryView {
	txns := make([]TransactionView, 0, len(page.Transactions))
	for _, txn := range page.Transactions {
		txns = append(txns, transactionView(txn))
	}
	return HistoryView{
		Transactions: txns,
		Total:        page.Total,
		NextOffset:   page.NextOffset,
		HasMore:      page.HasMore,
	}
}

func transferView(result command.TransferTokensResult) TransferView {
	return TransferView{
		TransactionID: result.TransactionID,
		Transferred:   append([]uuid.UUID{}, result.TokenIDs...),
		TokenCount:    result.TokenCount,
		TotalMinutes:  result.TotalMinutes,
		Replayed:      result.Replayed,
	}
}

func activityFeedView(page types.ActivityPage) ActivityFeedView {
	records := make([]ActivityView, 0, len(page.Records))
	for _, record := range page.Records {
		records = append(records, activityView(record))
	}
	return ActivityFeedView{Records: records, Total: page.Total, HasMore: page.HasMore}
}

func activityView(record types.ActivityRecord) ActivityView {
	return ActivityView{
		ID:         record.ID,
		UserID:     record.UserID,
		ActorID:    record.ActorID,
		Verb:       record.Verb,
		ObjectType: record.ObjectType,
		ObjectID:   record.ObjectID,
		Data:       record.Data,
		OccurredAt: record.OccurredAt,
	}
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	v := value
	return &v
}
