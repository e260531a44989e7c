package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// RevokeTokenInput deactivates a token the actor issued and still holds.
type RevokeTokenInput struct {
	Actor   types.ActorRef
	TokenID uuid.UUID
	Reason  string
	Result  *types.TimeToken
}

// Type implements gocommand.Message.
func (RevokeTokenInput) Type() string {
	return "command.token.revoke"
}

// Validate implements gocommand.Message.
func (input RevokeTokenInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return actorRequired()
	case input.TokenID == uuid.Nil:
		return types.FieldValidationError("token_id", ErrTokenIDRequired.Error())
	default:
		return nil
	}
}

// RevokeTokenCommand retires a token before it changes hands. Tokens held by
// another user cannot be revoked since the minutes are owed to the holder.
type RevokeTokenCommand struct {
	store    types.TokenStore
	clock    types.Clock
	logger   types.Logger
	hooks    types.Hooks
	activity types.ActivitySink
}

// RevokeTokenCommandConfig wires the revocation command.
type RevokeTokenCommandConfig struct {
	Store    types.TokenStore
	Clock    types.Clock
	Logger   types.Logger
	Hooks    types.Hooks
	Activity types.ActivitySink
}

// NewRevokeTokenCommand constructs the revocation handler.
func NewRevokeTokenCommand(cfg RevokeTokenCommandConfig) *RevokeTokenCommand {
	return &RevokeTokenCommand{
		store:    cfg.Store,
		clock:    safeClock(cfg.Clock),
		logger:   safeLogger(cfg.Logger),
		hooks:    cfg.Hooks,
		activity: cfg.Activity,
	}
}

var _ gocommand.Commander[RevokeTokenInput] = (*RevokeTokenCommand)(nil)

// Execute revokes the token when the actor is both issuer and owner.
func (c *RevokeTokenCommand) Execute(ctx context.Context, input RevokeTokenInput) error {
	if c.store == nil {
		return ErrTokenStoreRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	current, err := c.store.GetToken(ctx, input.TokenID)
	if err != nil {
		logFailure(c.logger, "token revocation lookup failed", err, "token_id", input.TokenID)
		return err
	}
	if current.IssuerID != input.Actor.ID {
		return types.AuthorizationError("go-timebank: only the issuer may revoke a token", types.TextCodeRevocationForbidden).
			WithMetadata(map[string]any{types.MetadataTokenID: input.TokenID.String()})
	}

	revokedAt := now(c.clock)
	updated, err := c.store.DeactivateToken(ctx, types.DeactivateInput{
		TokenID:       input.TokenID,
		ExpectedOwner: input.Actor.ID,
		Reason:        types.DeactivationRevoked,
		At:            revokedAt,
	})
	if err != nil {
		logFailure(c.logger, "token revocation failed", err, "token_id", input.TokenID)
		return err
	}

	metadata := map[string]any{
		"denomination": updated.Denomination,
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		metadata["reason"] = reason
	}
	record := activity.BuildRecord(input.Actor, activity.VerbTokenRevoked, activity.ObjectTypeToken, updated.ID.String(), metadata)
	record.OccurredAt = revokedAt
	logActivity(ctx, c.logger, c.activity, record)
	emitActivityHook(ctx, c.hooks, record)
	emitDeactivationHook(ctx, c.hooks, types.DeactivationEvent{
		TokenIDs:   []uuid.UUID{updated.ID},
		Reason:     types.DeactivationRevoked,
		ActorID:    input.Actor.ID,
		OccurredAt: revokedAt,
	})

	if input.Result != nil {
		*input.Result = *updated
	}
	return nil
}
