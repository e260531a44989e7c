package activity

import (
	"context"
	"errors"

	"github.com/goliatone/go-masker"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// RepositoryConfig wires the Bun-backed activity repository. Either DB or
// Repository must be set; Repository wins when both are present.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*LogEntry]
	Clock      types.Clock
	IDGen      types.IDGenerator
	Masker     *masker.Masker
}

// Repository is the ledger activity log. It satisfies both the write side
// (types.ActivitySink) and the feed side (types.ActivityRepository).
type Repository struct {
	repository.Repository[*LogEntry]
	clock types.Clock
	idGen types.IDGenerator
	mask  *masker.Masker
}

var (
	_ types.ActivitySink       = (*Repository)(nil)
	_ types.ActivityRepository = (*Repository)(nil)
)

// NewRepository builds the activity log on top of go-repository-bun.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	store := cfg.Repository
	if store == nil {
		if cfg.DB == nil {
			return nil, errors.New("activity: db or repository required")
		}
		store = repository.NewRepository(cfg.DB, logEntryHandlers())
	}

	repo := &Repository{
		Repository: store,
		clock:      cfg.Clock,
		idGen:      cfg.IDGen,
		mask:       cfg.Masker,
	}
	if repo.clock == nil {
		repo.clock = types.SystemClock{}
	}
	if repo.idGen == nil {
		repo.idGen = types.UUIDGenerator{}
	}
	if repo.mask == nil {
		repo.mask = DefaultMasker()
	}
	return repo, nil
}

func logEntryHandlers() repository.ModelHandlers[*LogEntry] {
	return repository.ModelHandlers[*LogEntry]{
		NewRecord: func() *LogEntry { return &LogEntry{} },
		GetID: func(entry *LogEntry) uuid.UUID {
			if entry == nil {
				return uuid.Nil
			}
			return entry.ID
		},
		SetID: func(entry *LogEntry, id uuid.UUID) {
			if entry != nil {
				entry.ID = id
			}
		},
	}
}

// Log masks credential-like payload values and appends the record. Missing
// ids and timestamps are assigned here.
func (r *Repository) Log(ctx context.Context, record types.ActivityRecord) error {
	record = SanitizeRecord(r.mask, record)
	if record.ID == uuid.Nil {
		record.ID = r.idGen.UUID()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = r.clock.Now()
	}
	_, err := r.Create(ctx, FromActivityRecord(record))
	return err
}

// ListActivity returns one page of the feed, newest first.
func (r *Repository) ListActivity(ctx context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	page := clampFeedPage(filter.Pagination)
	rows, total, err := r.List(ctx, feedCriteria(filter, page)...)
	if err != nil {
		return types.ActivityPage{}, err
	}

	out := types.ActivityPage{
		Records:    make([]types.ActivityRecord, 0, len(rows)),
		Total:      total,
		NextOffset: page.Offset + page.Limit,
	}
	for _, row := range rows {
		out.Records = append(out.Records, ToActivityRecord(row))
	}
	out.HasMore = out.NextOffset < total
	return out, nil
}

// feedCriteria translates a filter into select criteria. Unset filter fields
// add no condition.
func feedCriteria(filter types.ActivityFilter, page types.Pagination) []repository.SelectCriteria {
	criteria := []repository.SelectCriteria{
		participantCriteria(filter.UserID, filter.ActorID),
		func(q *bun.SelectQuery) *bun.SelectQuery {
			if len(filter.Verbs) > 0 {
				q = q.Where("verb IN (?)", bun.In(filter.Verbs))
			}
			if filter.ObjectType != "" {
				q = q.Where("object_type = ?", filter.ObjectType)
			}
			if filter.ObjectID != "" {
				q = q.Where("object_id = ?", filter.ObjectID)
			}
			if filter.Channel != "" {
				q = q.Where("channel = ?", filter.Channel)
			}
			return q
		},
		func(q *bun.SelectQuery) *bun.SelectQuery {
			if filter.Since != nil && !filter.Since.IsZero() {
				q = q.Where("created_at >= ?", *filter.Since)
			}
			if filter.Until != nil && !filter.Until.IsZero() {
				q = q.Where("created_at <= ?", *filter.Until)
			}
			return q
		},
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset)
		},
	}
	return criteria
}

// participantCriteria matches records about a member or authored by them.
// When both ids are given a record matching either one qualifies.
func participantCriteria(userID, actorID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		switch {
		case userID != uuid.Nil && actorID != uuid.Nil:
			return q.Where("(user_id = ? OR actor_id = ?)", userID, actorID)
		case userID != uuid.Nil:
			return q.Where("user_id = ?", userID)
		case actorID != uuid.Nil:
			return q.Where("actor_id = ?", actorID)
		}
		return q
	}
}

func clampFeedPage(p types.Pagination) types.Pagination {
	switch {
	case p.Limit <= 0:
		p.Limit = defaultFeedLimit
	case p.Limit > maxFeedLimit:
		p.Limit = maxFeedLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// FromActivityRecord converts a domain record into its persisted row.
func FromActivityRecord(record types.ActivityRecord) *LogEntry {
	return &LogEntry{
		ID:         record.ID,
		UserID:     record.UserID,
		ActorID:    record.ActorID,
		Verb:       record.Verb,
		ObjectType: record.ObjectType,
		ObjectID:   record.ObjectID,
		Channel:    record.Channel,
		Data:       cloneMap(record.Data),
		CreatedAt:  record.OccurredAt,
	}
}

// ToActivityRecord converts a persisted row into the domain record.
func ToActivityRecord(entry *LogEntry) types.ActivityRecord {
	if entry == nil {
		return types.ActivityRecord{}
	}
	return types.ActivityRecord{
		ID:         entry.ID,
		UserID:     entry.UserID,
		ActorID:    entry.ActorID,
		Verb:       entry.Verb,
		ObjectType: entry.ObjectType,
		ObjectID:   entry.ObjectID,
		Channel:    entry.Channel,
		Data:       cloneMap(entry.Data),
		OccurredAt: entry.CreatedAt,
	}
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
