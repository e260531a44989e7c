package command

import (
	"context"
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

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

// logFailure records persistence failures with full detail. Business rule
// rejections are only traced at debug level.
func logFailure(logger types.Logger, msg string, err error, fields ...any) {
	if types.IsPersistence(err) {
		logger.Error(msg, err, fields...)
		return
	}
	logger.Debug(msg, append(fields, "error", err)...)
}

func logActivity(ctx context.Context, logger types.Logger, sink types.ActivitySink, record types.ActivityRecord) {
	if sink == nil {
		return
	}
	if err := sink.Log(ctx, record); err != nil {
		logger.Error("activity log failed", err, "verb", record.Verb, "object_id", record.ObjectID)
	}
}

func emitActivityHook(ctx context.Context, hooks types.Hooks, record types.ActivityRecord) {
	if hooks.AfterActivity == nil {
		return
	}
	hooks.AfterActivity(ctx, record)
}

func emitIssueHook(ctx context.Context, hooks types.Hooks, event types.TokenEvent) {
	if hooks.AfterIssue == nil {
		return
	}
	hooks.AfterIssue(ctx, event)
}

func emitTransferHook(ctx context.Context, hooks types.Hooks, event types.TransferEvent) {
	if hooks.AfterTransfer == nil {
		return
	}
	hooks.AfterTransfer(ctx, event)
}

func emitDeactivationHook(ctx context.Context, hooks types.Hooks, event types.DeactivationEvent) {
	if hooks.AfterDeactivation == nil {
		return
	}
	hooks.AfterDeactivation(ctx, event)
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
