package activity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LogEntry models the persisted row in ledger_activity.
type LogEntry struct {
	bun.BaseModel `bun:"table:ledger_activity"`

	ID         uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	UserID     uuid.UUID      `bun:"user_id,nullzero,type:uuid" json:"user_id"`
	ActorID    uuid.UUID      `bun:"actor_id,nullzero,type:uuid" json:"actor_id"`
	Verb       string         `bun:"verb" json:"verb"`
	ObjectType string         `bun:"object_type" json:"object_type"`
	ObjectID   string         `bun:"object_id" json:"object_id"`
	Channel    string         `bun:"channel" json:"channel,omitempty"`
	Data       map[string]any `bun:"data,type:jsonb" json:"data,omitempty"`
	CreatedAt  time.Time      `bun:"created_at" json:"created_at"`
}
