package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// TokenDetailInput identifies a single token.
type TokenDetailInput struct {
	Actor   types.ActorRef
	TokenID uuid.UUID
}

// Type implements gocommand.Message.
func (TokenDetailInput) Type() string {
	return "query.token.detail"
}

// Validate implements gocommand.Message.
func (input TokenDetailInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return actorRequired()
	case input.TokenID == uuid.Nil:
		return types.FieldValidationError("token_id", "token id is required")
	default:
		return nil
	}
}

// TokenDetailQuery fetches one token. Token records are visible to any
// authenticated member so recipients can inspect what they are offered.
type TokenDetailQuery struct {
	store types.TokenStore
}

// NewTokenDetailQuery constructs the token detail query.
func NewTokenDetailQuery(store types.TokenStore) *TokenDetailQuery {
	return &TokenDetailQuery{store: store}
}

var _ gocommand.Querier[TokenDetailInput, *types.TimeToken] = (*TokenDetailQuery)(nil)

// Query returns the token or a not found error.
func (q *TokenDetailQuery) Query(ctx context.Context, input TokenDetailInput) (*types.TimeToken, error) {
	if q.store == nil {
		return nil, types.ErrMissingTokenStore
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return q.store.GetToken(ctx, input.TokenID)
}

// WalletInput lists tokens held by OwnerID, defaulting to the actor.
type WalletInput struct {
	Actor      types.ActorRef
	OwnerID    uuid.UUID
	ActiveOnly bool
	Pagination types.Pagination
}

// Type implements gocommand.Message.
func (WalletInput) Type() string {
	return "query.token.wallet"
}

// Validate implements gocommand.Message.
func (input WalletInput) Validate() error {
	if input.Actor.ID == uuid.Nil {
		return actorRequired()
	}
	return nil
}

// WalletQuery returns the tokens and spendable minutes held by a member.
type WalletQuery struct {
	store types.TokenStore
	clock types.Clock
}

// NewWalletQuery constructs the wallet query.
func NewWalletQuery(store types.TokenStore, clock types.Clock) *WalletQuery {
	return &WalletQuery{
		store: store,
		clock: safeClock(clock),
	}
}

var _ gocommand.Querier[WalletInput, types.TokenPage] = (*WalletQuery)(nil)

// Query lists the owner's tokens, oldest first. ActiveMinutes only counts
// tokens that can still be transferred.
func (q *WalletQuery) Query(ctx context.Context, input WalletInput) (types.TokenPage, error) {
	if q.store == nil {
		return types.TokenPage{}, types.ErrMissingTokenStore
	}
	if err := input.Validate(); err != nil {
		return types.TokenPage{}, err
	}
	owner := input.OwnerID
	if owner == uuid.Nil {
		owner = input.Actor.ID
	}
	return q.store.ListTokens(ctx, types.TokenFilter{
		OwnerID:    owner,
		ActiveOnly: input.ActiveOnly,
		Now:        now(q.clock),
		Pagination: input.Pagination,
	})
}
