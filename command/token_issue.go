package command

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// DefaultMaxDenomination caps a single token at one day of service.
const DefaultMaxDenomination = 24 * 60

// IssueTokenInput carries the issuance request for the acting user.
type IssueTokenInput struct {
	Actor        types.ActorRef
	Denomination int
	ExpiresAt    *time.Time
	Result       *types.TimeToken
}

// Type implements gocommand.Message.
func (IssueTokenInput) Type() string {
	return "command.token.issue"
}

// Validate implements gocommand.Message.
func (input IssueTokenInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return actorRequired()
	case input.Denomination <= 0:
		return types.FieldValidationError("denomination", "denomination must be a positive number of minutes")
	default:
		return nil
	}
}

// IssueTokenCommand mints a token owned by its issuer.
type IssueTokenCommand struct {
	store           types.TokenStore
	clock           types.Clock
	logger          types.Logger
	hooks           types.Hooks
	activity        types.ActivitySink
	featureGate     featuregate.FeatureGate
	maxDenomination int
}

// IssueTokenCommandConfig wires the issuance command.
type IssueTokenCommandConfig struct {
	Store           types.TokenStore
	Clock           types.Clock
	Logger          types.Logger
	Hooks           types.Hooks
	Activity        types.ActivitySink
	FeatureGate     featuregate.FeatureGate
	MaxDenomination int
}

// NewIssueTokenCommand constructs the issuance handler.
func NewIssueTokenCommand(cfg IssueTokenCommandConfig) *IssueTokenCommand {
	maxDenomination := cfg.MaxDenomination
	if maxDenomination <= 0 {
		maxDenomination = DefaultMaxDenomination
	}
	return &IssueTokenCommand{
		store:           cfg.Store,
		clock:           safeClock(cfg.Clock),
		logger:          safeLogger(cfg.Logger),
		hooks:           cfg.Hooks,
		activity:        cfg.Activity,
		featureGate:     cfg.FeatureGate,
		maxDenomination: maxDenomination,
	}
}

var _ gocommand.Commander[IssueTokenInput] = (*IssueTokenCommand)(nil)

// Execute validates the request and inserts one active, self-owned token.
func (c *IssueTokenCommand) Execute(ctx context.Context, input IssueTokenInput) error {
	if c.store == nil {
		return ErrTokenStoreRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if input.Denomination > c.maxDenomination {
		return types.FieldValidationError("denomination", "denomination exceeds the maximum allowed minutes")
	}

	issuedAt := now(c.clock)
	var expiresAt time.Time
	if input.ExpiresAt != nil && !input.ExpiresAt.IsZero() {
		if !input.ExpiresAt.After(issuedAt) {
			return types.FieldValidationError("expires_at", "expires_at must be in the future")
		}
		expiresAt = input.ExpiresAt.UTC()
	}

	if enabled, err := featureEnabled(ctx, c.featureGate, featureTokensIssue, input.Actor.ID, true); err != nil {
		return err
	} else if !enabled {
		return types.AuthorizationError("go-timebank: token issuance disabled", types.TextCodeIssuanceDisabled)
	}

	token, err := c.store.CreateToken(ctx, types.TimeToken{
		IssuerID:     input.Actor.ID,
		OwnerID:      input.Actor.ID,
		Denomination: input.Denomination,
		IsActive:     true,
		ExpiresAt:    expiresAt,
		CreatedAt:    issuedAt,
		UpdatedAt:    issuedAt,
	})
	if err != nil {
		logFailure(c.logger, "token issuance failed", err, "issuer_id", input.Actor.ID)
		return err
	}

	metadata := map[string]any{
		"denomination": token.Denomination,
	}
	if !token.ExpiresAt.IsZero() {
		metadata["expires_at"] = token.ExpiresAt
	}
	record := activity.BuildRecord(input.Actor, activity.VerbTokenIssued, activity.ObjectTypeToken, token.ID.String(), metadata)
	record.OccurredAt = issuedAt
	logActivity(ctx, c.logger, c.activity, record)
	emitActivityHook(ctx, c.hooks, record)
	emitIssueHook(ctx, c.hooks, types.TokenEvent{
		Token:      *token,
		ActorID:    input.Actor.ID,
		OccurredAt: issuedAt,
	})

	if input.Result != nil {
		*input.Result = *token
	}
	return nil
}
