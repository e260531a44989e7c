package ledger

import (
	"context"
	"errors"
	"slices"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const transactionCacheKeyPrefix = "go-timebank::transaction::v1::"

// CachedTransactionReader serves GetTransaction from a cache. Committed
// transactions never change, so entries are never invalidated; history
// listings still go to the store because new rows keep arriving.
type CachedTransactionReader struct {
	base  types.TransactionLog
	cache repositorycache.CacheService
}

// NewCachedTransactionReader decorates base with cacheService.
func NewCachedTransactionReader(base types.TransactionLog, cacheService repositorycache.CacheService) (*CachedTransactionReader, error) {
	if base == nil {
		return nil, errors.New("ledger: base transaction log is required")
	}
	if cacheService == nil {
		return nil, errors.New("ledger: transaction cache service is required")
	}
	return &CachedTransactionReader{base: base, cache: cacheService}, nil
}

// NewTransactionCacheService builds an in-memory cache service. A positive
// ttl overrides the library default entry lifetime.
func NewTransactionCacheService(ttl time.Duration) (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	return repositorycache.NewCacheService(config)
}

var _ types.TransactionLog = (*CachedTransactionReader)(nil)

// TransactionCacheKey returns the cache key used for a transaction id.
func TransactionCacheKey(id uuid.UUID) string {
	return transactionCacheKeyPrefix + id.String()
}

// GetTransaction implements types.TransactionLog.
func (c *CachedTransactionReader) GetTransaction(ctx context.Context, id uuid.UUID) (*types.Transaction, error) {
	if c == nil || c.base == nil || c.cache == nil {
		return nil, errors.New("ledger: cached transaction reader is not configured")
	}
	txn, err := repositorycache.GetOrFetch(ctx, c.cache, TransactionCacheKey(id), func(ctx context.Context) (types.Transaction, error) {
		fetched, fetchErr := c.base.GetTransaction(ctx, id)
		if fetchErr != nil {
			return types.Transaction{}, fetchErr
		}
		return cloneTransaction(*fetched), nil
	})
	if err != nil {
		return nil, err
	}
	out := cloneTransaction(txn)
	return &out, nil
}

// ListTransactions implements types.TransactionLog.
func (c *CachedTransactionReader) ListTransactions(ctx context.Context, filter types.HistoryFilter) (types.TransactionPage, error) {
	if c == nil || c.base == nil {
		return types.TransactionPage{}, errors.New("ledger: cached transaction reader is not configured")
	}
	return c.base.ListTransactions(ctx, filter)
}

func cloneTransaction(txn types.Transaction) types.Transaction {
	cloned := txn
	cloned.TokenIDs = slices.Clone(txn.TokenIDs)
	return cloned
}
