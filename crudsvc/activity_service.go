package crudsvc

import (
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/crudguard"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/query"
)

// ActivityServiceConfig wires dependencies for the CRUD-backed activity feed.
type ActivityServiceConfig struct {
	Guard     GuardAdapter
	FeedQuery gocommand.Querier[query.ActivityFeedInput, types.ActivityPage]
}

// ActivityService adapts the ledger activity feed to a go-crud controller.
// Entries are written by commands only.
type ActivityService struct {
	guard  GuardAdapter
	feed   gocommand.Querier[query.ActivityFeedInput, types.ActivityPage]
	logger types.Logger
}

// NewActivityService constructs the adapter.
func NewActivityService(cfg ActivityServiceConfig, opts ...ServiceOption) *ActivityService {
	options := applyOptions(opts)
	return &ActivityService{
		guard:  cfg.Guard,
		feed:   cfg.FeedQuery,
		logger: options.logger,
	}
}

func (s *ActivityService) Create(crud.Context, *activity.LogEntry) (*activity.LogEntry, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *ActivityService) CreateBatch(crud.Context, []*activity.LogEntry) ([]*activity.LogEntry, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *ActivityService) Update(crud.Context, *activity.LogEntry) (*activity.LogEntry, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *ActivityService) UpdateBatch(crud.Context, []*activity.LogEntry) ([]*activity.LogEntry, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *ActivityService) Delete(crud.Context, *activity.LogEntry) error {
	return notSupported(crud.OpDelete)
}

func (s *ActivityService) DeleteBatch(crud.Context, []*activity.LogEntry) error {
	return notSupported(crud.OpDeleteBatch)
}

func (s *ActivityService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*activity.LogEntry, int, error) {
	if s.feed == nil {
		return nil, 0, missingDependency("activity feed query")
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		return nil, 0, err
	}

	params := readQuery(ctx)
	filter := types.ActivityFilter{
		Verbs:      params.List("verb"),
		ObjectType: params.raw("object_type"),
		ObjectID:   params.raw("object_id"),
		Channel:    params.raw("channel"),
		Since:      params.Time("since"),
		Until:      params.Time("until"),
		Pagination: params.Page(),
	}
	if err := params.Err(); err != nil {
		return nil, 0, err
	}
	page, err := s.feed.Query(ctx.UserContext(), query.ActivityFeedInput{
		Actor:  res.Actor,
		Filter: filter,
	})
	if err != nil {
		return nil, 0, err
	}
	entries := make([]*activity.LogEntry, 0, len(page.Records))
	for _, record := range page.Records {
		entries = append(entries, activity.FromActivityRecord(record))
	}
	return entries, page.Total, nil
}

func (s *ActivityService) Show(crud.Context, string, []repository.SelectCriteria) (*activity.LogEntry, error) {
	return nil, notSupported(crud.OpRead)
}
