package query

import (
	"time"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func actorRequired() error {
	return types.AuthenticationError("go-timebank: actor reference required", types.ErrActorRequired)
}

func historyForbidden() error {
	return types.AuthorizationError("go-timebank: transaction history is limited to participants", types.TextCodeHistoryForbidden)
}

func participant(txn *types.Transaction, userID uuid.UUID) bool {
	return txn != nil && (txn.SenderID == userID || txn.RecipientID == userID)
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}
