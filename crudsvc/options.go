package crudsvc

import (
	"fmt"

	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-timebank/crudguard"
	"github.com/goliatone/go-timebank/pkg/types"
)

// GuardAdapter captures the subset of crudguard.Adapter we rely on so tests can
// swap in fakes.
type GuardAdapter interface {
	Enforce(in crudguard.GuardInput) (crudguard.GuardResult, error)
}

type serviceOptions struct {
	logger types.Logger
}

// ServiceOption customizes CRUD service behaviour.
type ServiceOption func(*serviceOptions)

// WithLogger wires a logger for service diagnostics.
func WithLogger(logger types.Logger) ServiceOption {
	return func(cfg *serviceOptions) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func applyOptions(opts []ServiceOption) serviceOptions {
	cfg := serviceOptions{
		logger: types.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func notSupported(op crud.CrudOperation) error {
	return goerrors.New(
		fmt.Sprintf("go-timebank: crud operation %s disabled for this resource", op),
		goerrors.CategoryValidation,
	).WithCode(goerrors.CodeBadRequest)
}

func missingDependency(name string) error {
	return goerrors.New(fmt.Sprintf("go-timebank: %s unavailable", name), goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal)
}

// ReadOnlyRoutes disables every write route on a go-crud controller. The
// ledger only changes through commands.
func ReadOnlyRoutes() crud.RouteConfig {
	return crud.RouteConfig{
		Operations: map[crud.CrudOperation]crud.RouteOptions{
			crud.OpCreate:      {Enabled: crud.BoolPtr(false)},
			crud.OpUpdate:      {Enabled: crud.BoolPtr(false)},
			crud.OpDelete:      {Enabled: crud.BoolPtr(false)},
			crud.OpCreateBatch: {Enabled: crud.BoolPtr(false)},
			crud.OpUpdateBatch: {Enabled: crud.BoolPtr(false)},
			crud.OpDeleteBatch: {Enabled: crud.BoolPtr(false)},
		},
	}
}
