package command

import (
	"errors"

	"github.com/goliatone/go-timebank/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrTokenStoreRequired indicates the command was wired without a store.
	ErrTokenStoreRequired = types.ErrMissingTokenStore
	// ErrTokenIDRequired indicates a token-scoped command omitted the token id.
	ErrTokenIDRequired = errors.New("go-timebank: token id required")
	// ErrActivityVerbRequired indicates an activity record omitted its verb.
	ErrActivityVerbRequired = errors.New("verb is required")
)

func actorRequired() error {
	return types.AuthenticationError("go-timebank: actor reference required", ErrActorRequired)
}
