package command

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestActivityLogCommand_RecordsMemberActivity(t *testing.T) {
	sink := &recordingActivitySink{}
	var hooked []types.ActivityRecord
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	cmd := NewActivityLogCommand(ActivityLogConfig{
		Sink:  sink,
		Clock: fixedClock{t: at},
		Hooks: types.Hooks{
			AfterActivity: func(_ context.Context, record types.ActivityRecord) {
				hooked = append(hooked, record)
			},
		},
	})

	member := uuid.New()
	txnID := uuid.NewString()
	result := &types.ActivityRecord{}
	err := cmd.Execute(context.Background(), ActivityLogInput{
		Actor:      types.ActorRef{ID: member},
		Verb:       "service.rendered",
		ObjectType: "token_transaction",
		ObjectID:   txnID,
		Data:       map[string]any{"note": "garden help"},
		Result:     result,
	})
	require.NoError(t, err)
	require.Len(t, sink.records, 1)

	record := sink.records[0]
	require.NotEqual(t, uuid.Nil, record.ID)
	require.Equal(t, member, record.UserID)
	require.Equal(t, member, record.ActorID)
	require.Equal(t, ChannelMember, record.Channel)
	require.Equal(t, txnID, record.ObjectID)
	require.Equal(t, at, record.OccurredAt)
	require.Equal(t, "garden help", record.Data["note"])
	require.Equal(t, record.ID, result.ID)
	require.Len(t, hooked, 1)
}

func TestActivityLogCommand_RejectsInvalidInput(t *testing.T) {
	sink := &recordingActivitySink{}
	cmd := NewActivityLogCommand(ActivityLogConfig{Sink: sink})
	member := types.ActorRef{ID: uuid.New()}

	err := cmd.Execute(context.Background(), ActivityLogInput{Verb: "service.rendered"})
	require.True(t, types.IsAuthentication(err))

	err = cmd.Execute(context.Background(), ActivityLogInput{Actor: member, Verb: "  "})
	require.True(t, types.IsValidation(err))

	for _, verb := range []string{"token.issued", "tokens.transferred"} {
		err = cmd.Execute(context.Background(), ActivityLogInput{Actor: member, Verb: verb})
		require.True(t, types.IsValidation(err), verb)
	}
	require.Empty(t, sink.records)

	unwired := NewActivityLogCommand(ActivityLogConfig{})
	err = unwired.Execute(context.Background(), ActivityLogInput{Actor: member, Verb: "service.rendered"})
	require.ErrorIs(t, err, types.ErrMissingActivitySink)
}
