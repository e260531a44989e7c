// Package data embeds the ledger SQL migrations. PostgreSQL files live at the
// root of sql/migrations and SQLite overrides under sql/migrations/sqlite.
package data

import (
	"embed"
	"io/fs"
)

//go:embed sql/migrations/*.sql sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrations returns the migration tree rooted at sql/migrations, the layout
// go-persistence-bun expects for dialect-aware registration.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "sql/migrations")
	if err != nil {
		panic(err)
	}
	return sub
}
