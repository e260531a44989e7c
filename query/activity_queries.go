package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// ActivityFeedInput requests the actor's own audit feed.
type ActivityFeedInput struct {
	Actor  types.ActorRef
	Filter types.ActivityFilter
}

// ActivityFeedQuery renders paginated activity feeds scoped to the actor.
type ActivityFeedQuery struct {
	repo types.ActivityRepository
}

// NewActivityFeedQuery constructs the feed query helper.
func NewActivityFeedQuery(repo types.ActivityRepository) *ActivityFeedQuery {
	return &ActivityFeedQuery{repo: repo}
}

var _ gocommand.Querier[ActivityFeedInput, types.ActivityPage] = (*ActivityFeedQuery)(nil)

// Query fetches records the actor performed or that concern the actor.
func (q *ActivityFeedQuery) Query(ctx context.Context, input ActivityFeedInput) (types.ActivityPage, error) {
	if q.repo == nil {
		return types.ActivityPage{}, types.ErrMissingActivityRepository
	}
	if input.Actor.ID == uuid.Nil {
		return types.ActivityPage{}, actorRequired()
	}
	filter := input.Filter
	filter.UserID = input.Actor.ID
	filter.ActorID = input.Actor.ID
	return q.repo.ListActivity(ctx, filter)
}
