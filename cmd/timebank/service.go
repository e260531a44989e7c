package main

import (
	"context"

	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/identity"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/service"
)

// WithTimebankService builds the ledger store, the activity log and the
// service facade on top of the database opened by WithPersistence.
func WithTimebankService(ctx context.Context, app *App) error {
	cfg := app.Config()

	ledgerRepo, err := ledger.NewRepository(ledger.RepositoryConfig{
		DB:          app.bunDB,
		LockTimeout: cfg.Ledger.LockTimeout,
	})
	if err != nil {
		return err
	}
	app.ledger = ledgerRepo

	cacheService, err := ledger.NewTransactionCacheService(cfg.Ledger.TransactionCacheTTL)
	if err != nil {
		return err
	}
	transactions, err := ledger.NewCachedTransactionReader(ledgerRepo, cacheService)
	if err != nil {
		return err
	}

	activityRepo, err := activity.NewRepository(activity.RepositoryConfig{DB: app.bunDB})
	if err != nil {
		return err
	}
	app.activity = activityRepo

	jwtResolver, err := identity.NewJWTResolver(cfg.GetAuth())
	if err != nil {
		return err
	}

	sink := &activity.EnrichedSink{
		Sink:       activityRepo,
		Enricher:   activity.EnricherChain{activity.RequestIDEnricher()},
		BestEffort: true,
	}

	hookLogger := app.GetLogger("hooks")
	svc := service.New(service.Config{
		TokenStore:           ledgerRepo,
		TransactionLog:       transactions,
		ActivitySink:         sink,
		ActivityRepository:   activityRepo,
		IdentityResolver:     identity.NewActorResolver(jwtResolver),
		Logger:               app.ServiceLogger("ledger"),
		MaxDenomination:      cfg.Ledger.MaxDenomination,
		MaxTokensPerTransfer: cfg.Ledger.MaxTokensPerTransfer,
		ExpiryBatchSize:      cfg.Ledger.ExpiryBatchSize,
		Hooks: types.Hooks{
			AfterTransfer: func(_ context.Context, event types.TransferEvent) {
				hookLogger.Info("transfer committed",
					"transaction_id", event.Transaction.ID,
					"sender_id", event.Transaction.SenderID,
					"recipient_id", event.Transaction.RecipientID,
					"total_minutes", event.Transaction.TotalMinutes,
				)
			},
			AfterDeactivation: func(_ context.Context, event types.DeactivationEvent) {
				hookLogger.Info("tokens deactivated",
					"reason", event.Reason,
					"count", len(event.TokenIDs),
				)
			},
		},
	})

	if err := svc.HealthCheck(ctx); err != nil {
		return err
	}
	app.SetTimebank(svc)
	return nil
}
