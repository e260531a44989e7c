package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const (
	featureTokensIssue   = "timebank.tokens.issue"
	featureSelfTransfers = "timebank.transfers.self"
)

// featureEnabled evaluates key for userID. fallback applies when no gate is
// wired.
func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, userID uuid.UUID, fallback bool) (bool, error) {
	if gate == nil {
		return fallback, nil
	}
	var opts []featuregate.ResolveOption
	if scopeSet := featureScopeSet(userID); scopeSet != nil {
		opts = append(opts, featuregate.WithScopeSet(*scopeSet))
	}
	enabled, err := gate.Enabled(ctx, key, opts...)
	if err != nil {
		return false, types.PersistenceError(err)
	}
	return enabled, nil
}

func featureScopeSet(userID uuid.UUID) *featuregate.ScopeSet {
	if userID == uuid.Nil {
		return nil
	}
	return &featuregate.ScopeSet{
		System: true,
		UserID: userID.String(),
	}
}
