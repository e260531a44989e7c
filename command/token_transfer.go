package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const (
	// DefaultMaxTokensPerTransfer bounds how many rows one transfer locks.
	DefaultMaxTokensPerTransfer = 100
	// MaxIdempotencyKeyLength bounds client supplied idempotency keys.
	MaxIdempotencyKeyLength = 128
)

// TransferTokensInput moves TokenIDs from the actor to RecipientID.
type TransferTokensInput struct {
	Actor          types.ActorRef
	RecipientID    uuid.UUID
	TokenIDs       []uuid.UUID
	ServiceID      uuid.UUID
	IdempotencyKey string
	Result         *TransferTokensResult
}

// TransferTokensResult reports the committed (or replayed) transaction.
type TransferTokensResult struct {
	TransactionID uuid.UUID
	TokenIDs      []uuid.UUID
	TokenCount    int
	TotalMinutes  int
	Replayed      bool
	Transaction   types.Transaction
}

// Type implements gocommand.Message.
func (TransferTokensInput) Type() string {
	return "command.token.transfer"
}

// Validate implements gocommand.Message.
func (input TransferTokensInput) Validate() error {
	if input.Actor.ID == uuid.Nil {
		return actorRequired()
	}
	if input.RecipientID == uuid.Nil {
		return types.FieldValidationError("recipient_id", "recipient is required")
	}
	if len(input.TokenIDs) == 0 {
		return types.FieldValidationError("token_ids", "at least one token is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.TokenIDs))
	for _, id := range input.TokenIDs {
		if id == uuid.Nil {
			return types.FieldValidationError("token_ids", "token ids must not be empty")
		}
		if _, ok := seen[id]; ok {
			return types.FieldValidationError("token_ids", "token ids must be unique")
		}
		seen[id] = struct{}{}
	}
	if len(strings.TrimSpace(input.IdempotencyKey)) > MaxIdempotencyKeyLength {
		return types.FieldValidationError("idempotency_key", "idempotency key is too long")
	}
	return nil
}

// TransferTokensCommand validates transfer preconditions and delegates the
// atomic validate, mutate and record unit to the token store.
type TransferTokensCommand struct {
	store       types.TokenStore
	logger      types.Logger
	hooks       types.Hooks
	activity    types.ActivitySink
	featureGate featuregate.FeatureGate
	maxTokens   int
}

// TransferTokensCommandConfig wires the transfer command.
type TransferTokensCommandConfig struct {
	Store                types.TokenStore
	Logger               types.Logger
	Hooks                types.Hooks
	Activity             types.ActivitySink
	FeatureGate          featuregate.FeatureGate
	MaxTokensPerTransfer int
}

// NewTransferTokensCommand constructs the transfer handler.
func NewTransferTokensCommand(cfg TransferTokensCommandConfig) *TransferTokensCommand {
	maxTokens := cfg.MaxTokensPerTransfer
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokensPerTransfer
	}
	return &TransferTokensCommand{
		store:       cfg.Store,
		logger:      safeLogger(cfg.Logger),
		hooks:       cfg.Hooks,
		activity:    cfg.Activity,
		featureGate: cfg.FeatureGate,
		maxTokens:   maxTokens,
	}
}

var _ gocommand.Commander[TransferTokensInput] = (*TransferTokensCommand)(nil)

// Execute runs the transfer. Either every token moves to the recipient and
// one transaction is recorded, or nothing changes.
func (c *TransferTokensCommand) Execute(ctx context.Context, input TransferTokensInput) error {
	if c.store == nil {
		return ErrTokenStoreRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if len(input.TokenIDs) > c.maxTokens {
		return types.FieldValidationError("token_ids", "too many tokens in a single transfer")
	}
	if input.RecipientID == input.Actor.ID {
		enabled, err := featureEnabled(ctx, c.featureGate, featureSelfTransfers, input.Actor.ID, false)
		if err != nil {
			return err
		}
		if !enabled {
			return types.FieldValidationError("recipient_id", "recipient must differ from sender")
		}
	}

	result, err := c.store.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID:       input.Actor.ID,
		RecipientID:    input.RecipientID,
		ServiceID:      input.ServiceID,
		TokenIDs:       input.TokenIDs,
		IdempotencyKey: strings.TrimSpace(input.IdempotencyKey),
	})
	if err != nil {
		fields := []any{"sender_id", input.Actor.ID, "recipient_id", input.RecipientID, "token_count", len(input.TokenIDs)}
		if tokenID, ok := types.OffendingToken(err); ok {
			fields = append(fields, "token_id", tokenID)
		}
		logFailure(c.logger, "token transfer failed", err, fields...)
		return err
	}

	txn := result.Transaction
	if !result.Replayed {
		record := activity.BuildRecord(input.Actor, activity.VerbTokensTransferred, activity.ObjectTypeTransaction, txn.ID.String(), map[string]any{
			"recipient_id":  txn.RecipientID.String(),
			"token_ids":     idStrings(txn.TokenIDs),
			"token_count":   txn.TokenCount,
			"total_minutes": txn.TotalMinutes,
		})
		if txn.ServiceID != uuid.Nil {
			record.Data["service_id"] = txn.ServiceID.String()
		}
		if txn.IdempotencyKey != "" {
			record.Data["idempotency_key"] = txn.IdempotencyKey
		}
		record.OccurredAt = txn.CreatedAt
		logActivity(ctx, c.logger, c.activity, record)
		emitActivityHook(ctx, c.hooks, record)
		emitTransferHook(ctx, c.hooks, types.TransferEvent{
			Transaction: txn,
			ActorID:     input.Actor.ID,
			OccurredAt:  txn.CreatedAt,
		})
	} else {
		c.logger.Debug("token transfer replayed", "transaction_id", txn.ID, "idempotency_key", txn.IdempotencyKey)
	}

	if input.Result != nil {
		*input.Result = TransferTokensResult{
			TransactionID: txn.ID,
			TokenIDs:      append([]uuid.UUID(nil), txn.TokenIDs...),
			TokenCount:    txn.TokenCount,
			TotalMinutes:  txn.TotalMinutes,
			Replayed:      result.Replayed,
			Transaction:   txn,
		}
	}
	return nil
}
