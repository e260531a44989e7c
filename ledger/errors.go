package ledger

import (
	"context"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// PostgreSQL error codes that indicate a lost race rather than a fault.
const (
	pqLockNotAvailable     = "55P03"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

// classifyError turns driver and store errors into the ledger taxonomy.
// Errors that already carry a go-errors envelope pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := types.AsLedgerError(err); ok {
		return err
	}
	if isRetryableDriverError(err) {
		return types.ConflictError("go-timebank: concurrent ledger update, retry the request", err)
	}
	if isUniqueViolation(err) {
		return types.ConflictError("go-timebank: transaction already recorded", err)
	}
	if repository.IsSQLExpectedCountViolation(err) {
		return types.ConflictError("go-timebank: ledger rows changed during the update", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ConflictError("go-timebank: ledger operation did not complete in time", err)
	}
	return types.PersistenceError(err)
}

// isRetryableDriverError matches lock timeouts, serialization failures,
// deadlocks and SQLite busy/locked conditions.
func isRetryableDriverError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqLockNotAvailable, pqSerializationFailure, pqDeadlockDetected:
			return true
		}
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return repository.IsDuplicatedKey(err)
}
