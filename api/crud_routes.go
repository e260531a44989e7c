package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-crud"
	featuregate "github.com/goliatone/go-featuregate/gate"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/crudguard"
	"github.com/goliatone/go-timebank/crudsvc"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/service"
)

const (
	// FeatureLedgerBrowse gates the read-only go-crud controllers.
	FeatureLedgerBrowse = "timebank.ledger.browse"
	featureLedgerWrite  = "timebank.ledger.write"
)

// CrudConfig wires the read-only go-crud controllers.
type CrudConfig struct {
	Service      *service.Service
	Tokens       repository.Repository[*ledger.TokenRecord]
	Transactions repository.Repository[*ledger.TransactionRecord]
	Activity     repository.Repository[*activity.LogEntry]
	FeatureGate  featuregate.FeatureGate
	Logger       func(name string) types.Logger
}

// RegisterCrud mounts read-only controllers for tokens, transactions and the
// activity feed on r. Writes go through the command routes only.
func RegisterCrud(r router.Router[*fiber.App], cfg CrudConfig) error {
	if cfg.Service == nil {
		return types.ErrServiceNotReady
	}
	if cfg.Tokens == nil || cfg.Transactions == nil {
		return errors.New("go-timebank: crud routes require token and transaction repositories")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(string) types.Logger { return types.NopLogger{} }
	}

	guardCfg := crudguard.Config{Logger: logger("guard:ledger")}
	if cfg.FeatureGate != nil {
		guardCfg.Gate = cfg.FeatureGate
		guardCfg.FeatureMap = crudguard.DefaultFeatureMap(FeatureLedgerBrowse, featureLedgerWrite)
	}
	guard, err := crudguard.NewAdapter(guardCfg)
	if err != nil {
		return err
	}

	adapter := crud.NewGoRouterAdapter(r)
	queries := cfg.Service.Queries()

	tokenService := crudsvc.NewTokenService(crudsvc.TokenServiceConfig{
		Guard:  guard,
		Wallet: queries.Wallet,
		Detail: queries.TokenDetail,
	}, crudsvc.WithLogger(logger("svc:tokens")))
	tokenController := crud.NewController(cfg.Tokens,
		crud.WithService(tokenService),
		crud.WithRouteConfig[*ledger.TokenRecord](crudsvc.ReadOnlyRoutes()),
	)
	tokenController.RegisterRoutes(adapter)

	transactionService := crudsvc.NewTransactionService(crudsvc.TransactionServiceConfig{
		Guard:   guard,
		History: queries.TransactionHistory,
		Detail:  queries.TransactionDetail,
	}, crudsvc.WithLogger(logger("svc:transactions")))
	transactionController := crud.NewController(cfg.Transactions,
		crud.WithService(transactionService),
		crud.WithRouteConfig[*ledger.TransactionRecord](crudsvc.ReadOnlyRoutes()),
	)
	transactionController.RegisterRoutes(adapter)

	if cfg.Activity != nil {
		activityService := crudsvc.NewActivityService(crudsvc.ActivityServiceConfig{
			Guard:     guard,
			FeedQuery: queries.ActivityFeed,
		}, crudsvc.WithLogger(logger("svc:activity")))
		activityController := crud.NewController(cfg.Activity,
			crud.WithService(activityService),
			crud.WithRouteConfig[*activity.LogEntry](crudsvc.ReadOnlyRoutes()),
		)
		activityController.RegisterRoutes(adapter)
	}
	return nil
}
