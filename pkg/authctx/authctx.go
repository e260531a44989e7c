package authctx

import (
	"context"
	"strings"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const (
	textCodeActorMissing = "ACTOR_CONTEXT_MISSING"
	textCodeActorInvalid = "ACTOR_CONTEXT_INVALID"
)

// ActorFromContext returns the go-auth actor payload stored on ctx.
func ActorFromContext(ctx context.Context) (*auth.ActorContext, bool) {
	return auth.ActorFromContext(ctx)
}

// WithActor stores a go-auth actor payload for the given user on ctx. Tests
// and trusted internal callers use it to act on behalf of a user.
func WithActor(ctx context.Context, userID uuid.UUID, role string) context.Context {
	return auth.WithActorContext(ctx, &auth.ActorContext{
		ActorID: userID.String(),
		Subject: userID.String(),
		Role:    role,
	})
}

// Attach stores an existing go-auth actor payload on ctx.
func Attach(ctx context.Context, actor *auth.ActorContext) context.Context {
	if actor == nil {
		return ctx
	}
	return auth.WithActorContext(ctx, actor)
}

// ResolveActorContext returns the actor stored on ctx, falling back to the
// go-auth claims when only those were attached.
func ResolveActorContext(ctx context.Context) (*auth.ActorContext, error) {
	if ctx == nil {
		return nil, unauthenticated("go-timebank: missing request context", textCodeActorMissing, nil)
	}

	if actor, ok := auth.ActorFromContext(ctx); ok && actor != nil {
		return actor, nil
	}

	if claims, ok := auth.GetClaims(ctx); ok && claims != nil {
		if actor := auth.ActorContextFromClaims(claims); actor != nil {
			return actor, nil
		}
	}

	return nil, unauthenticated("go-timebank: auth actor context not found on request", textCodeActorMissing, nil)
}

// ResolveActorContextFromRouter checks the router locals before the request
// context.
func ResolveActorContextFromRouter(ctx router.Context) (*auth.ActorContext, error) {
	if ctx == nil {
		return nil, unauthenticated("go-timebank: missing router context", textCodeActorMissing, nil)
	}

	if actor, ok := auth.ActorFromRouterContext(ctx); ok && actor != nil {
		return actor, nil
	}

	return ResolveActorContext(ctx.Context())
}

// ResolveActor returns the ActorRef used by ledger commands for the actor
// stored on ctx.
func ResolveActor(ctx context.Context) (types.ActorRef, error) {
	actorCtx, err := ResolveActorContext(ctx)
	if err != nil {
		return types.ActorRef{}, err
	}
	return ActorRefFromActorContext(actorCtx)
}

// ActorRefFromActorContext converts the auth middleware payload into an
// ActorRef. The id comes from ActorID, then Subject. A payload without a
// role is treated as a member.
func ActorRefFromActorContext(actor *auth.ActorContext) (types.ActorRef, error) {
	if actor == nil {
		return types.ActorRef{}, unauthenticated("go-timebank: actor context is nil", textCodeActorInvalid, nil)
	}
	raw := strings.TrimSpace(actor.ActorID)
	if raw == "" {
		raw = strings.TrimSpace(actor.Subject)
	}
	if raw == "" {
		return types.ActorRef{}, unauthenticated("go-timebank: actor context missing actor_id", textCodeActorInvalid, nil)
	}
	actorID, err := uuid.Parse(raw)
	if err != nil || actorID == uuid.Nil {
		return types.ActorRef{}, unauthenticated("go-timebank: invalid actor_id on auth context", textCodeActorInvalid, err)
	}

	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if role == "" {
		role = types.ActorTypeMember
	}
	return types.ActorRef{ID: actorID, Type: role}, nil
}

// TextCode returns the detailed actor resolution code carried in metadata.
func TextCode(err error) string {
	var rich *errors.Error
	if !errors.As(err, &rich) || rich.Metadata == nil {
		return ""
	}
	code, _ := rich.Metadata["reason"].(string)
	return code
}

func unauthenticated(message, reason string, source error) error {
	return types.AuthenticationError(message, source).
		WithMetadata(map[string]any{"reason": reason})
}
