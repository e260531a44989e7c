package migrations

import (
	"io/fs"
	"sync"

	persistence "github.com/goliatone/go-persistence-bun"
)

// Dialect names understood by the ledger migrations.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var (
	mu          sync.RWMutex
	filesystems []fs.FS
)

// Register records a filesystem rooted at a migrations directory: PostgreSQL
// files at the root and SQLite overrides under sqlite/. Callers can then feed
// all registered filesystems into go-persistence-bun via RegisterWithClient.
func Register(fsys fs.FS) {
	if fsys == nil {
		return
	}
	mu.Lock()
	filesystems = append(filesystems, fsys)
	mu.Unlock()
}

// Filesystems returns a copy of all registered migration filesystems.
func Filesystems() []fs.FS {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]fs.FS, len(filesystems))
	copy(out, filesystems)
	return out
}

// RegisterWithClient hands every registered filesystem to the persistence
// client as dialect-aware migrations.
func RegisterWithClient(client *persistence.Client) {
	if client == nil {
		return
	}
	for _, fsys := range Filesystems() {
		client.RegisterDialectMigrations(
			fsys,
			persistence.WithDialectSourceLabel("."),
			persistence.WithValidationTargets(DialectPostgres, DialectSQLite),
		)
	}
}
