package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// openDatabase maps the configured driver onto a database/sql driver name
// and the matching bun dialect.
func openDatabase(driver, dsn string) (*sql.DB, schema.Dialect, string, error) {
	dialect, err := migrations.NormalizeDialect(driver)
	if err != nil {
		return nil, nil, "", err
	}
	switch dialect {
	case migrations.DialectPostgres:
		db, err := sql.Open("postgres", dsn)
		return db, pgdialect.New(), dialect, err
	default:
		if strings.TrimSpace(dsn) == "" {
			dsn = "file::memory:?cache=shared&_foreign_keys=on"
		}
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, nil, "", err
		}
		// SQLite serialises writers; a single connection keeps the
		// transfer transaction from racing itself for the file lock.
		db.SetMaxOpenConns(1)
		return db, sqlitedialect.New(), dialect, nil
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().GetPersistence()
	logger := app.GetLogger("persistence")

	db, dialect, dialectName, err := openDatabase(cfg.GetDriver(), cfg.GetServer())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	persistence.RegisterModel((*ledger.TokenRecord)(nil))
	persistence.RegisterModel((*ledger.TransactionRecord)(nil))
	persistence.RegisterModel((*ledger.TransferRecord)(nil))
	persistence.RegisterModel((*activity.LogEntry)(nil))

	bunClient, err := persistence.New(cfg, db, dialect)
	if err != nil {
		return err
	}
	bunClient.SetLogger(logger)

	migrations.RegisterWithClient(bunClient)

	if err := bunClient.ValidateDialects(ctx); err != nil {
		logger.Warn("dialect validation failed", "error", err)
	}

	if err := bunClient.Migrate(ctx); err != nil {
		return err
	}

	if report := bunClient.Report(); report != nil && !report.IsZero() {
		logger.Info("migrations applied", "report", report.String())
	}

	if err := migrations.ValidateLedgerSchema(ctx, db, dialectName); err != nil {
		return err
	}

	app.SetDB(bunClient.DB())
	return nil
}
