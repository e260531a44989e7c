package crudguard

import (
	"fmt"

	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-timebank/pkg/authctx"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const (
	textCodeOperationDisabled = "CRUD_OPERATION_DISABLED"
	textCodeGateFailure       = "CRUD_GATE_FAILED"
	textCodeMissingFeature    = "CRUD_FEATURE_MISSING"
	textCodeMissingContext    = "CONTEXT_MISSING"
)

// Config drives Adapter construction.
type Config struct {
	Gate            featuregate.FeatureGate
	Logger          types.Logger
	FeatureMap      map[crud.CrudOperation]string
	FallbackFeature string
}

// Adapter turns go-crud operations into actor resolution plus an optional
// feature gate check per operation.
type Adapter struct {
	gate            featuregate.FeatureGate
	logger          types.Logger
	featureMap      map[crud.CrudOperation]string
	fallbackFeature string
}

// GuardInput captures per-request parameters supplied by transports.
type GuardInput struct {
	Context   crud.Context
	Operation crud.CrudOperation
	TargetID  uuid.UUID
	Bypass    *BypassConfig
}

// GuardResult reports the resolved actor for the request.
type GuardResult struct {
	Actor        types.ActorRef
	Operation    crud.CrudOperation
	Feature      string
	Bypassed     bool
	BypassReason string
}

// BypassConfig explicitly skips the feature gate for whitelisted routes. The
// actor is still resolved. It must never be enabled by default.
type BypassConfig struct {
	Enabled bool
	Reason  string
}

// NewAdapter constructs a guard adapter. Without a gate every operation that
// resolves an actor is allowed.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Gate != nil && len(cfg.FeatureMap) == 0 && cfg.FallbackFeature == "" {
		return nil, goerrors.New("go-timebank: feature map or fallback feature must be provided", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithTextCode(textCodeMissingFeature)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Adapter{
		gate:            cfg.Gate,
		logger:          logger,
		featureMap:      cloneFeatureMap(cfg.FeatureMap),
		fallbackFeature: cfg.FallbackFeature,
	}, nil
}

// Enforce resolves the actor, optionally bypasses, and finally checks the
// feature mapped to the operation.
func (a *Adapter) Enforce(in GuardInput) (GuardResult, error) {
	if in.Context == nil {
		return GuardResult{}, goerrors.New("go-timebank: crudguard requires a context", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithTextCode(textCodeMissingContext)
	}

	ctx := in.Context.UserContext()
	actor, err := authctx.ResolveActor(ctx)
	if err != nil {
		return GuardResult{}, err
	}

	if in.Bypass != nil && in.Bypass.Enabled {
		a.logger.Info("crudguard: bypassing feature gate", "operation", string(in.Operation), "reason", in.Bypass.Reason)
		return GuardResult{
			Actor:        actor,
			Operation:    in.Operation,
			Bypassed:     true,
			BypassReason: in.Bypass.Reason,
		}, nil
	}

	result := GuardResult{Actor: actor, Operation: in.Operation}
	if a.gate == nil {
		return result, nil
	}

	feature := a.featureForOperation(in.Operation)
	result.Feature = feature
	if feature == "" {
		return result, nil
	}

	enabled, err := a.gate.Enabled(ctx, feature, featuregate.WithScopeSet(featuregate.ScopeSet{
		System: true,
		UserID: actor.ID.String(),
	}))
	if err != nil {
		return GuardResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("go-timebank: feature gate failed for %s", feature)).
			WithCode(goerrors.CodeInternal).
			WithTextCode(textCodeGateFailure)
	}
	if !enabled {
		a.logger.Debug("crudguard: operation disabled", "operation", string(in.Operation), "feature", feature, "actor_id", actor.ID.String())
		return GuardResult{}, types.AuthorizationError(
			fmt.Sprintf("go-timebank: %s is disabled", in.Operation),
			textCodeOperationDisabled,
		)
	}
	return result, nil
}

func (a *Adapter) featureForOperation(op crud.CrudOperation) string {
	if key, ok := a.featureMap[op]; ok && key != "" {
		return key
	}
	return a.fallbackFeature
}
