package activity

import (
	"testing"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildRecordPopulatesFields(t *testing.T) {
	actorID := uuid.New()
	recipient := uuid.New()
	meta := map[string]any{"token_count": 2}

	record := BuildRecord(types.ActorRef{ID: actorID}, VerbTokensTransferred, ObjectTypeTransaction, "txn-1", meta,
		WithUser(recipient), WithChannel("transfers"))

	require.Equal(t, actorID, record.ActorID)
	require.Equal(t, recipient, record.UserID)
	require.Equal(t, VerbTokensTransferred, record.Verb)
	require.Equal(t, ObjectTypeTransaction, record.ObjectType)
	require.Equal(t, "txn-1", record.ObjectID)
	require.Equal(t, "transfers", record.Channel)
	require.Equal(t, 2, record.Data["token_count"])

	meta["token_count"] = 5
	require.Equal(t, 2, record.Data["token_count"])
}

func TestBuildRecordHandlesNilMetadata(t *testing.T) {
	actorID := uuid.New()
	record := BuildRecord(types.ActorRef{ID: actorID}, VerbTokenIssued, ObjectTypeToken, "tok-1", nil, WithUser(uuid.Nil))
	require.NotNil(t, record.Data)
	require.Len(t, record.Data, 0)
	require.Equal(t, actorID, record.UserID)
	require.Equal(t, ChannelLedger, record.Channel)
}
