package ledger

import (
	"context"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DefaultLockTimeout bounds how long a transfer waits on row locks.
const DefaultLockTimeout = 5 * time.Second

// RepositoryConfig wires the Bun-backed ledger store.
type RepositoryConfig struct {
	DB           *bun.DB
	Tokens       repository.Repository[*TokenRecord]
	Transactions repository.Repository[*TransactionRecord]
	Clock        types.Clock
	IDGen        types.IDGenerator
	LockTimeout  time.Duration
}

// Repository implements types.TokenStore and types.TransactionLog on Bun.
type Repository struct {
	db           *bun.DB
	tokens       repository.Repository[*TokenRecord]
	transactions repository.Repository[*TransactionRecord]
	clock        types.Clock
	idGen        types.IDGenerator
	lockTimeout  time.Duration
}

// NewRepository constructs the default ledger store. A *bun.DB is always
// required because transfers run inside database transactions.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("ledger: db required")
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewTokenRecordRepository(cfg.DB)
	}
	transactions := cfg.Transactions
	if transactions == nil {
		transactions = NewTransactionRecordRepository(cfg.DB)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Repository{
		db:           cfg.DB,
		tokens:       tokens,
		transactions: transactions,
		clock:        clock,
		idGen:        idGen,
		lockTimeout:  lockTimeout,
	}, nil
}

// NewTokenRecordRepository builds the generic repository for time_tokens.
func NewTokenRecordRepository(db *bun.DB) repository.Repository[*TokenRecord] {
	return repository.NewRepository(db, repository.ModelHandlers[*TokenRecord]{
		NewRecord: func() *TokenRecord { return &TokenRecord{} },
		GetID: func(rec *TokenRecord) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *TokenRecord, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

// NewTransactionRecordRepository builds the generic repository for
// token_transactions. The admin CRUD controller reuses it.
func NewTransactionRecordRepository(db *bun.DB) repository.Repository[*TransactionRecord] {
	return repository.NewRepository(db, repository.ModelHandlers[*TransactionRecord]{
		NewRecord: func() *TransactionRecord { return &TransactionRecord{} },
		GetID: func(rec *TransactionRecord) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *TransactionRecord, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

var (
	_ types.TokenStore     = (*Repository)(nil)
	_ types.TransactionLog = (*Repository)(nil)
)

// DB exposes the underlying Bun handle.
func (r *Repository) DB() *bun.DB {
	return r.db
}

// CreateToken persists a newly issued token.
func (r *Repository) CreateToken(ctx context.Context, token types.TimeToken) (*types.TimeToken, error) {
	if token.Denomination <= 0 {
		return nil, types.FieldValidationError("denomination", "must be a positive number of minutes")
	}
	if token.IssuerID == uuid.Nil {
		return nil, types.FieldValidationError("issuer_id", "issuer is required")
	}
	rec := fromTokenDomain(token)
	if rec.ID == uuid.Nil {
		rec.ID = r.idGen.UUID()
	}
	if rec.CurrentOwnerID == uuid.Nil {
		rec.CurrentOwnerID = rec.IssuerID
	}
	now := r.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	created, err := r.tokens.Create(ctx, rec)
	if err != nil {
		return nil, classifyError(err)
	}
	return toTokenDomain(created), nil
}

// GetToken returns a token by id.
func (r *Repository) GetToken(ctx context.Context, id uuid.UUID) (*types.TimeToken, error) {
	rec, err := r.tokens.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.TokenNotFoundError(id)
		}
		return nil, classifyError(err)
	}
	return toTokenDomain(rec), nil
}

// ListTokens returns the tokens matching filter together with the spendable
// minute balance of the whole matched set.
func (r *Repository) ListTokens(ctx context.Context, filter types.TokenFilter) (types.TokenPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)
	now := filter.Now
	if now.IsZero() {
		now = r.clock.Now()
	}
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = applyTokenFilter(q, filter, now)
			return q.OrderExpr("created_at ASC").
				OrderExpr("id ASC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
		},
	}
	rows, total, err := r.tokens.List(ctx, criteria...)
	if err != nil {
		return types.TokenPage{}, classifyError(err)
	}

	var minutes int
	sum := r.db.NewSelect().
		Model((*TokenRecord)(nil)).
		ColumnExpr("COALESCE(SUM(denomination), 0)")
	sum = applyTokenFilter(sum, filter, now)
	sum = applySpendable(sum, now)
	if err := sum.Scan(ctx, &minutes); err != nil {
		return types.TokenPage{}, classifyError(err)
	}

	tokens := make([]types.TimeToken, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, *toTokenDomain(row))
	}
	return types.TokenPage{
		Tokens:        tokens,
		Total:         total,
		ActiveMinutes: minutes,
		NextOffset:    pagination.Offset + pagination.Limit,
		HasMore:       pagination.Offset+pagination.Limit < total,
	}, nil
}

// DeactivateToken flips a token to inactive. The update is conditional on the
// token still being active (and owned by ExpectedOwner when set) so it never
// races a concurrent transfer.
func (r *Repository) DeactivateToken(ctx context.Context, input types.DeactivateInput) (*types.TimeToken, error) {
	if input.TokenID == uuid.Nil {
		return nil, types.FieldValidationError("token_id", "token id is required")
	}
	at := input.At
	if at.IsZero() {
		at = r.clock.Now()
	}
	reason := input.Reason
	if reason == "" {
		reason = types.DeactivationRevoked
	}

	q := r.db.NewUpdate().
		Model((*TokenRecord)(nil)).
		Set("is_active = ?", false).
		Set("deactivated_at = ?", at).
		Set("deactivation_reason = ?", string(reason)).
		Set("updated_at = ?", at).
		Where("id = ?", input.TokenID).
		Where("is_active = ?", true)
	if input.ExpectedOwner != uuid.Nil {
		q = q.Where("current_owner_id = ?", input.ExpectedOwner)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		current, getErr := r.GetToken(ctx, input.TokenID)
		if getErr != nil {
			return nil, getErr
		}
		if !current.IsActive {
			return nil, types.TokenInactiveError(input.TokenID)
		}
		if input.ExpectedOwner != uuid.Nil && current.OwnerID != input.ExpectedOwner {
			return nil, types.NotOwnerError(input.TokenID)
		}
		return nil, classifyError(err)
	}
	return r.GetToken(ctx, input.TokenID)
}

// DeactivateExpired deactivates up to limit active tokens whose expiry is at
// or before now and returns their ids.
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if now.IsZero() {
		now = r.clock.Now()
	}
	if limit <= 0 {
		limit = 500
	}
	var expired []uuid.UUID
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.beginWrite(ctx, tx); err != nil {
			return err
		}
		var records []*TokenRecord
		if err := tx.NewSelect().
			Model(&records).
			Column("id").
			Where("is_active = ?", true).
			Where("expires_at IS NOT NULL").
			Where("expires_at <= ?", now).
			OrderExpr("expires_at ASC").
			Limit(limit).
			Scan(ctx); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
		res, err := tx.NewUpdate().
			Model((*TokenRecord)(nil)).
			Set("is_active = ?", false).
			Set("deactivated_at = ?", now).
			Set("deactivation_reason = ?", string(types.DeactivationExpired)).
			Set("updated_at = ?", now).
			Where("id IN (?)", bun.In(idStrings(ids))).
			Where("is_active = ?", true).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && int(affected) != len(ids) {
			return types.ConflictError("go-timebank: tokens changed during expiry sweep", nil)
		}
		expired = ids
		return nil
	})
	if err != nil {
		return nil, classifyError(err)
	}
	return expired, nil
}

// GetTransaction returns a transaction with its token ids populated.
func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*types.Transaction, error) {
	rec, err := r.transactions.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.TransactionNotFoundError(id)
		}
		return nil, classifyError(err)
	}
	links, err := r.loadTransferLinks(ctx, r.db, []uuid.UUID{rec.ID})
	if err != nil {
		return nil, classifyError(err)
	}
	txn := toTransactionDomain(rec, links[rec.ID])
	return &txn, nil
}

// ListTransactions returns history for a token or a participant ordered by
// creation time, oldest first.
func (r *Repository) ListTransactions(ctx context.Context, filter types.HistoryFilter) (types.TransactionPage, error) {
	if filter.TokenID == uuid.Nil && filter.UserID == uuid.Nil {
		return types.TransactionPage{}, types.ValidationError("go-timebank: history requires a token id or a user id")
	}
	pagination := normalizePagination(filter.Pagination, 100, 500)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			if filter.TokenID != uuid.Nil {
				q = q.Where("id IN (?)", r.db.NewSelect().
					Model((*TransferRecord)(nil)).
					Column("transaction_id").
					Where("token_id = ?", filter.TokenID))
			}
			if filter.UserID != uuid.Nil {
				q = q.Where("(sender_id = ? OR recipient_id = ?)", filter.UserID, filter.UserID)
			}
			return q.OrderExpr("created_at ASC").
				OrderExpr("id ASC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
		},
	}
	rows, total, err := r.transactions.List(ctx, criteria...)
	if err != nil {
		return types.TransactionPage{}, classifyError(err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := r.loadTransferLinks(ctx, r.db, ids)
	if err != nil {
		return types.TransactionPage{}, classifyError(err)
	}
	out := make([]types.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionDomain(row, links[row.ID]))
	}
	return types.TransactionPage{
		Transactions: out,
		Total:        total,
		NextOffset:   pagination.Offset + pagination.Limit,
		HasMore:      pagination.Offset+pagination.Limit < total,
	}, nil
}

func (r *Repository) loadTransferLinks(ctx context.Context, db bun.IDB, transactionIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(transactionIDs))
	if len(transactionIDs) == 0 {
		return out, nil
	}
	var links []*TransferRecord
	if err := db.NewSelect().
		Model(&links).
		Where("transaction_id IN (?)", bun.In(idStrings(transactionIDs))).
		OrderExpr("token_id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	for _, link := range links {
		out[link.TransactionID] = append(out[link.TransactionID], link.TokenID)
	}
	return out, nil
}

// beginWrite takes the write side of the database up front. PostgreSQL bounds
// the wait for row locks; SQLite has no row locks so the transaction grabs the
// database write lock before reading anything it will later update.
func (r *Repository) beginWrite(ctx context.Context, tx bun.Tx) error {
	switch r.db.Dialect().Name() {
	case dialect.PG:
		_, err := tx.ExecContext(ctx, "SET LOCAL lock_timeout = ?", r.lockTimeout.Milliseconds())
		return err
	case dialect.SQLite:
		_, err := tx.ExecContext(ctx, "UPDATE time_tokens SET updated_at = updated_at WHERE 1 = 0")
		return err
	default:
		return nil
	}
}

func applyTokenFilter(q *bun.SelectQuery, filter types.TokenFilter, now time.Time) *bun.SelectQuery {
	if filter.OwnerID != uuid.Nil {
		q = q.Where("current_owner_id = ?", filter.OwnerID)
	}
	if filter.IssuerID != uuid.Nil {
		q = q.Where("issuer_id = ?", filter.IssuerID)
	}
	if filter.ActiveOnly {
		q = applySpendable(q, now)
	}
	return q
}

func applySpendable(q *bun.SelectQuery, now time.Time) *bun.SelectQuery {
	return q.Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", now)
}

func fromTokenDomain(token types.TimeToken) *TokenRecord {
	return &TokenRecord{
		ID:                 token.ID,
		IssuerID:           token.IssuerID,
		CurrentOwnerID:     token.OwnerID,
		Denomination:       token.Denomination,
		IsActive:           token.IsActive,
		ExpiresAt:          timePtr(token.ExpiresAt),
		DeactivatedAt:      timePtr(token.DeactivatedAt),
		DeactivationReason: string(token.DeactivationReason),
		CreatedAt:          token.CreatedAt,
		UpdatedAt:          token.UpdatedAt,
	}
}

func toTokenDomain(rec *TokenRecord) *types.TimeToken {
	if rec == nil {
		return nil
	}
	return &types.TimeToken{
		ID:                 rec.ID,
		IssuerID:           rec.IssuerID,
		OwnerID:            rec.CurrentOwnerID,
		Denomination:       rec.Denomination,
		IsActive:           rec.IsActive,
		ExpiresAt:          timeFromPtr(rec.ExpiresAt),
		DeactivatedAt:      timeFromPtr(rec.DeactivatedAt),
		DeactivationReason: types.DeactivationReason(rec.DeactivationReason),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}

func toTransactionDomain(rec *TransactionRecord, tokenIDs []uuid.UUID) types.Transaction {
	if rec == nil {
		return types.Transaction{}
	}
	return types.Transaction{
		ID:             rec.ID,
		SenderID:       rec.SenderID,
		RecipientID:    rec.RecipientID,
		ServiceID:      rec.ServiceID,
		Status:         types.TransactionStatus(rec.Status),
		IdempotencyKey: rec.IdempotencyKey,
		TokenIDs:       types.SortTokenIDs(tokenIDs),
		TokenCount:     rec.TokenCount,
		TotalMinutes:   rec.TotalMinutes,
		CreatedAt:      rec.CreatedAt,
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	copy := value
	return &copy
}

func timeFromPtr(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
