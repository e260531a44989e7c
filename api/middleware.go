package api

import (
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/pkg/authctx"
	"github.com/goliatone/go-timebank/pkg/types"
)

// RequestIDHeader carries the correlation id stamped onto activity records.
const RequestIDHeader = "X-Request-ID"

// Authenticate resolves the caller once per request and stores the actor on
// the request context so downstream handlers, including go-crud controllers,
// read it through authctx. Actors placed on the router context by go-auth
// middleware are reused without touching the credential.
func (h *Handler) Authenticate() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.SetContext(activity.WithRequestID(c.Context(), c.Header(RequestIDHeader)))
			if actor, err := authctx.ResolveActorContextFromRouter(c); err == nil {
				c.SetContext(authctx.Attach(c.Context(), actor))
				return next(c)
			}
			userID, err := h.cfg.Identity.Resolve(c.Context(), c.Header("Authorization"))
			if err != nil {
				return h.fail(c, err)
			}
			c.SetContext(authctx.WithActor(c.Context(), userID, types.ActorTypeMember))
			return next(c)
		}
	}
}
