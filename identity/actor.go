package identity

import (
	"context"

	"github.com/goliatone/go-timebank/pkg/authctx"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

// ActorResolver prefers the go-auth actor stored on the request context by
// upstream middleware and falls back to validating the bearer credential.
type ActorResolver struct {
	fallback types.IdentityResolver
}

var _ types.IdentityResolver = (*ActorResolver)(nil)

// NewActorResolver wraps fallback, which may be nil when every request is
// expected to carry actor metadata.
func NewActorResolver(fallback types.IdentityResolver) *ActorResolver {
	return &ActorResolver{fallback: fallback}
}

// Resolve implements types.IdentityResolver. A malformed actor payload is
// rejected rather than bypassed through the bearer fallback.
func (r *ActorResolver) Resolve(ctx context.Context, credential string) (uuid.UUID, error) {
	if _, ok := authctx.ActorFromContext(ctx); ok || r.fallback == nil {
		ref, err := authctx.ResolveActor(ctx)
		if err != nil {
			return uuid.Nil, err
		}
		return ref.ID, nil
	}
	return r.fallback.Resolve(ctx, credential)
}
