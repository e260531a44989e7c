package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who is initiating a ledger operation. The ID is the
// user id produced by the IdentityResolver.
type ActorRef struct {
	ID   uuid.UUID
	Type string
}

// Pagination supports offset pagination across wallet and history queries.
type Pagination struct {
	Limit  int
	Offset int
}

// Hooks groups optional callbacks invoked after ledger workflows complete.
type Hooks struct {
	AfterIssue        func(context.Context, TokenEvent)
	AfterTransfer     func(context.Context, TransferEvent)
	AfterDeactivation func(context.Context, DeactivationEvent)
	AfterActivity     func(context.Context, ActivityRecord)
}

// TokenEvent is emitted after a token has been issued.
type TokenEvent struct {
	Token      TimeToken
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// TransferEvent is emitted after a transfer commits. Replayed transfers do
// not emit events.
type TransferEvent struct {
	Transaction Transaction
	ActorID     uuid.UUID
	OccurredAt  time.Time
}

// DeactivationEvent is emitted when tokens leave the active state.
type DeactivationEvent struct {
	TokenIDs   []uuid.UUID
	Reason     DeactivationReason
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// ActivityRecord describes audit sink inputs and is shared across sink and
// query layers.
type ActivityRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ActorID    uuid.UUID
	Verb       string
	ObjectType string
	ObjectID   string
	Channel    string
	Data       map[string]any
	OccurredAt time.Time
}

// ActivitySink is the minimal DI contract for emitting audit activity.
type ActivitySink interface {
	Log(context.Context, ActivityRecord) error
}

// ActivityFilter narrows activity feed queries.
type ActivityFilter struct {
	UserID     uuid.UUID
	ActorID    uuid.UUID
	Verbs      []string
	ObjectType string
	ObjectID   string
	Channel    string
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// ActivityPage represents a paginated feed response.
type ActivityPage struct {
	Records    []ActivityRecord
	Total      int
	NextOffset int
	HasMore    bool
}

// ActivityRepository exposes read-side access to the audit trail.
type ActivityRepository interface {
	ListActivity(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = errors.New("go-timebank: actor reference required")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-timebank: service not ready")
	// ErrMissingTokenStore occurs when no token store was supplied.
	ErrMissingTokenStore = errors.New("go-timebank: missing token store")
	// ErrMissingTransactionLog occurs when history queries lack a transaction log.
	ErrMissingTransactionLog = errors.New("go-timebank: missing transaction log")
	// ErrMissingActivitySink occurs when no activity sink was supplied.
	ErrMissingActivitySink = errors.New("go-timebank: missing activity sink")
	// ErrMissingActivityRepository occurs when feed queries lack a repository.
	ErrMissingActivityRepository = errors.New("go-timebank: missing activity repository")
	// ErrMissingIdentityResolver occurs when transports lack an identity resolver.
	ErrMissingIdentityResolver = errors.New("go-timebank: missing identity resolver")
)
