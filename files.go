package timebank

import (
	"io/fs"

	"github.com/goliatone/go-timebank/data"
)

// GetMigrationsFS exposes the ledger migrations so host applications can
// register them with go-persistence-bun:
//
//	client.RegisterDialectMigrations(
//	    timebank.GetMigrationsFS(),
//	    persistence.WithDialectSourceLabel("."),
//	    persistence.WithValidationTargets("postgres", "sqlite"),
//	)
func GetMigrationsFS() fs.FS {
	return data.Migrations()
}
