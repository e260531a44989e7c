package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// ChannelMember tags activity authored by members rather than the ledger.
const ChannelMember = "member"

// reservedVerbPrefixes are owned by ledger workflows and cannot be logged
// directly.
var reservedVerbPrefixes = []string{"token.", "tokens."}

// ActivityLogInput describes a member-authored activity record, such as a
// note that a service exchange took place.
type ActivityLogInput struct {
	Actor      types.ActorRef
	Verb       string
	ObjectType string
	ObjectID   string
	Data       map[string]any
	Result     *types.ActivityRecord
}

// Type implements gocommand.Message.
func (ActivityLogInput) Type() string {
	return "command.activity.log"
}

// Validate implements gocommand.Message.
func (input ActivityLogInput) Validate() error {
	if input.Actor.ID == uuid.Nil {
		return actorRequired()
	}
	verb := strings.TrimSpace(input.Verb)
	if verb == "" {
		return types.FieldValidationError("verb", ErrActivityVerbRequired.Error())
	}
	for _, prefix := range reservedVerbPrefixes {
		if strings.HasPrefix(verb, prefix) {
			return types.FieldValidationError("verb", "verb is reserved for ledger activity")
		}
	}
	return nil
}

// ActivityLogCommand logs member-authored records through the ActivitySink.
type ActivityLogCommand struct {
	sink  types.ActivitySink
	hooks types.Hooks
	clock types.Clock
	idGen types.IDGenerator
}

// ActivityLogConfig wires dependencies for the log command.
type ActivityLogConfig struct {
	Sink  types.ActivitySink
	Hooks types.Hooks
	Clock types.Clock
	IDGen types.IDGenerator
}

// NewActivityLogCommand constructs the logging command handler.
func NewActivityLogCommand(cfg ActivityLogConfig) *ActivityLogCommand {
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &ActivityLogCommand{
		sink:  cfg.Sink,
		hooks: cfg.Hooks,
		clock: safeClock(cfg.Clock),
		idGen: idGen,
	}
}

var _ gocommand.Commander[ActivityLogInput] = (*ActivityLogCommand)(nil)

// Execute validates and persists the record. The actor is always both the
// subject and the author.
func (c *ActivityLogCommand) Execute(ctx context.Context, input ActivityLogInput) error {
	if c.sink == nil {
		return types.ErrMissingActivitySink
	}
	if err := input.Validate(); err != nil {
		return err
	}
	record := activity.BuildRecord(input.Actor, input.Verb, input.ObjectType, input.ObjectID, input.Data,
		activity.WithChannel(ChannelMember))
	record.ID = c.idGen.UUID()
	record.OccurredAt = now(c.clock)
	if err := c.sink.Log(ctx, record); err != nil {
		return types.PersistenceError(err)
	}
	emitActivityHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = record
	}
	return nil
}
