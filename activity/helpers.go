package activity

import (
	"strings"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// Verbs recorded by the ledger workflows.
const (
	VerbTokenIssued       = "token.issued"
	VerbTokensTransferred = "tokens.transferred"
	VerbTokensExpired     = "tokens.expired"
	VerbTokenRevoked      = "token.revoked"
)

// Object types referenced by ledger activity.
const (
	ObjectTypeToken       = "time_token"
	ObjectTypeTransaction = "token_transaction"
)

// ChannelLedger tags every record emitted by the ledger.
const ChannelLedger = "ledger"

// RecordOption mutates the ActivityRecord produced by BuildRecord.
type RecordOption func(*types.ActivityRecord)

// WithChannel sets the channel/module field used for downstream filtering.
func WithChannel(channel string) RecordOption {
	return func(record *types.ActivityRecord) {
		record.Channel = strings.TrimSpace(channel)
	}
}

// WithUser sets the user the record is about when it differs from the actor.
func WithUser(userID uuid.UUID) RecordOption {
	return func(record *types.ActivityRecord) {
		if userID != uuid.Nil {
			record.UserID = userID
		}
	}
}

// BuildRecord constructs an ActivityRecord for the acting user plus
// verb/object details and a copy of metadata.
func BuildRecord(actor types.ActorRef, verb, objectType, objectID string, metadata map[string]any, opts ...RecordOption) types.ActivityRecord {
	record := types.ActivityRecord{
		UserID:     actor.ID,
		ActorID:    actor.ID,
		Verb:       strings.TrimSpace(verb),
		ObjectType: strings.TrimSpace(objectType),
		ObjectID:   strings.TrimSpace(objectID),
		Channel:    ChannelLedger,
		Data:       cloneMap(metadata),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&record)
		}
	}
	return record
}
