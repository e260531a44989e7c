package command

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// DefaultExpiryBatchSize bounds how many tokens one sweep deactivates.
const DefaultExpiryBatchSize = 500

// ExpireTokensInput runs one expiry sweep. Actor is optional; scheduled
// sweeps run without one.
type ExpireTokensInput struct {
	Actor  types.ActorRef
	Now    time.Time
	Limit  int
	Result *ExpireTokensResult
}

// ExpireTokensResult lists the tokens deactivated by the sweep.
type ExpireTokensResult struct {
	TokenIDs []uuid.UUID
	SweptAt  time.Time
}

// Type implements gocommand.Message.
func (ExpireTokensInput) Type() string {
	return "command.token.expire"
}

// Validate implements gocommand.Message.
func (input ExpireTokensInput) Validate() error {
	if input.Limit < 0 {
		return types.FieldValidationError("limit", "limit must not be negative")
	}
	return nil
}

// ExpireTokensCommand deactivates active tokens whose expires_at has passed.
type ExpireTokensCommand struct {
	store     types.TokenStore
	clock     types.Clock
	logger    types.Logger
	hooks     types.Hooks
	activity  types.ActivitySink
	batchSize int
}

// ExpireTokensCommandConfig wires the expiry sweep.
type ExpireTokensCommandConfig struct {
	Store     types.TokenStore
	Clock     types.Clock
	Logger    types.Logger
	Hooks     types.Hooks
	Activity  types.ActivitySink
	BatchSize int
}

// NewExpireTokensCommand constructs the expiry handler.
func NewExpireTokensCommand(cfg ExpireTokensCommandConfig) *ExpireTokensCommand {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultExpiryBatchSize
	}
	return &ExpireTokensCommand{
		store:     cfg.Store,
		clock:     safeClock(cfg.Clock),
		logger:    safeLogger(cfg.Logger),
		hooks:     cfg.Hooks,
		activity:  cfg.Activity,
		batchSize: batch,
	}
}

var _ gocommand.Commander[ExpireTokensInput] = (*ExpireTokensCommand)(nil)

// Execute performs a single sweep and emits one activity record when any
// token was deactivated.
func (c *ExpireTokensCommand) Execute(ctx context.Context, input ExpireTokensInput) error {
	if c.store == nil {
		return ErrTokenStoreRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	sweptAt := input.Now
	if sweptAt.IsZero() {
		sweptAt = now(c.clock)
	}
	limit := input.Limit
	if limit == 0 || limit > c.batchSize {
		limit = c.batchSize
	}

	ids, err := c.store.DeactivateExpired(ctx, sweptAt, limit)
	if err != nil {
		logFailure(c.logger, "token expiry sweep failed", err, "limit", limit)
		return err
	}
	c.logger.Info("token expiry sweep finished", "expired", len(ids), "swept_at", sweptAt)

	if len(ids) > 0 {
		record := activity.BuildRecord(input.Actor, activity.VerbTokensExpired, activity.ObjectTypeToken, "", map[string]any{
			"token_ids":   idStrings(ids),
			"token_count": len(ids),
		})
		record.OccurredAt = sweptAt
		logActivity(ctx, c.logger, c.activity, record)
		emitActivityHook(ctx, c.hooks, record)
		emitDeactivationHook(ctx, c.hooks, types.DeactivationEvent{
			TokenIDs:   append([]uuid.UUID(nil), ids...),
			Reason:     types.DeactivationExpired,
			ActorID:    input.Actor.ID,
			OccurredAt: sweptAt,
		})
	}

	if input.Result != nil {
		*input.Result = ExpireTokensResult{
			TokenIDs: ids,
			SweptAt:  sweptAt,
		}
	}
	return nil
}
