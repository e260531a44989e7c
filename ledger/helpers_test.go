package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-timebank/migrations"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *stepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	applyLedgerDDL(t, db)
	return db
}

func newTestRepository(t *testing.T) (*Repository, *stepClock) {
	t.Helper()
	clock := newStepClock()
	repo, err := NewRepository(RepositoryConfig{DB: newTestDB(t), Clock: clock})
	require.NoError(t, err)
	return repo, clock
}

func applyLedgerDDL(t *testing.T, db *bun.DB) {
	t.Helper()
	require.NoError(t, migrations.ApplySQLite(context.Background(), db.DB))
}

// newFileTestRepository opens a file-backed SQLite database with a real
// connection pool so concurrent transfers run on separate connections.
func newFileTestRepository(t *testing.T, conns int) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		filepath.Join(t.TempDir(), "ledger.db"))
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(conns)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	applyLedgerDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: newStepClock()})
	require.NoError(t, err)
	return repo
}

func issueToken(t *testing.T, repo *Repository, owner uuid.UUID, minutes int) types.TimeToken {
	t.Helper()
	created, err := repo.CreateToken(context.Background(), types.TimeToken{
		IssuerID:     owner,
		OwnerID:      owner,
		Denomination: minutes,
		IsActive:     true,
	})
	require.NoError(t, err)
	return *created
}

func countRows(t *testing.T, db *bun.DB, table string) int {
	t.Helper()
	var count int
	require.NoError(t, db.NewRaw("SELECT COUNT(*) FROM "+table).Scan(context.Background(), &count))
	return count
}
