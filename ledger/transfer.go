package ledger

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ExecuteTransfer moves every token in plan from the sender to the recipient
// and records the transaction, all inside one database transaction:
//
//  1. replay an earlier transaction carrying the same idempotency key
//  2. lock and validate every token in sorted id order
//  3. conditionally reassign ownership, expecting one row per token
//  4. insert the transaction and its token links
//
// Any failure rolls the whole unit back.
func (r *Repository) ExecuteTransfer(ctx context.Context, plan types.TransferPlan) (types.TransferResult, error) {
	if err := validatePlan(plan); err != nil {
		return types.TransferResult{}, err
	}
	plan.TokenIDs = types.SortTokenIDs(plan.TokenIDs)
	plan.IdempotencyKey = strings.TrimSpace(plan.IdempotencyKey)
	if plan.TransactionID == uuid.Nil {
		plan.TransactionID = r.idGen.UUID()
	}

	var result types.TransferResult
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.beginWrite(ctx, tx); err != nil {
			return err
		}

		if replay, err := r.replayTransfer(ctx, tx, plan); err != nil || replay != nil {
			if replay != nil {
				result = types.TransferResult{Transaction: *replay, Replayed: true}
			}
			return err
		}

		tokens, err := r.lockTokens(ctx, tx, plan.TokenIDs)
		if err != nil {
			return err
		}
		// Read the clock only once the locks are held so history order
		// follows commit order.
		committedAt := r.clock.Now()
		total, err := validateOwnership(plan, tokens, committedAt)
		if err != nil {
			// A retry racing its own original only becomes visible after the
			// locks are released, so look for the committed original again.
			if replay, replayErr := r.replayTransfer(ctx, tx, plan); replayErr == nil && replay != nil {
				result = types.TransferResult{Transaction: *replay, Replayed: true}
				return nil
			}
			return err
		}

		res, err := tx.NewUpdate().
			Model((*TokenRecord)(nil)).
			Set("current_owner_id = ?", plan.RecipientID).
			Set("updated_at = ?", committedAt).
			Where("id IN (?)", bun.In(idStrings(plan.TokenIDs))).
			Where("current_owner_id = ?", plan.SenderID).
			Where("is_active = ?", true).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(affected) != len(plan.TokenIDs) {
			return types.ConflictError("go-timebank: tokens changed while the transfer was in flight", nil)
		}

		rec := &TransactionRecord{
			ID:             plan.TransactionID,
			SenderID:       plan.SenderID,
			RecipientID:    plan.RecipientID,
			ServiceID:      plan.ServiceID,
			Status:         string(types.TransactionStatusCompleted),
			IdempotencyKey: plan.IdempotencyKey,
			TokenCount:     len(plan.TokenIDs),
			TotalMinutes:   total,
			CreatedAt:      committedAt,
		}
		if _, err := r.transactions.CreateTx(ctx, tx, rec); err != nil {
			return err
		}

		links := make([]*TransferRecord, 0, len(plan.TokenIDs))
		for _, id := range plan.TokenIDs {
			links = append(links, &TransferRecord{TransactionID: rec.ID, TokenID: id})
		}
		if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}

		result = types.TransferResult{Transaction: toTransactionDomain(rec, plan.TokenIDs)}
		return nil
	})
	if err != nil {
		return types.TransferResult{}, classifyError(err)
	}
	return result, nil
}

func validatePlan(plan types.TransferPlan) error {
	if plan.SenderID == uuid.Nil {
		return types.FieldValidationError("sender_id", "sender is required")
	}
	if plan.RecipientID == uuid.Nil {
		return types.FieldValidationError("recipient_id", "recipient is required")
	}
	if len(plan.TokenIDs) == 0 {
		return types.FieldValidationError("token_ids", "at least one token is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(plan.TokenIDs))
	for _, id := range plan.TokenIDs {
		if id == uuid.Nil {
			return types.FieldValidationError("token_ids", "token ids must be valid uuids")
		}
		if _, ok := seen[id]; ok {
			return types.FieldValidationError("token_ids", "token ids must be unique")
		}
		seen[id] = struct{}{}
	}
	return nil
}

// lockTokens loads the tokens ordered by id. PostgreSQL takes row locks in
// that order; SQLite already holds the database write lock.
func (r *Repository) lockTokens(ctx context.Context, tx bun.Tx, ids []uuid.UUID) (map[uuid.UUID]*TokenRecord, error) {
	var records []*TokenRecord
	q := tx.NewSelect().
		Model(&records).
		Where("id IN (?)", bun.In(idStrings(ids))).
		OrderExpr("id ASC")
	if r.db.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	out := make(map[uuid.UUID]*TokenRecord, len(records))
	for _, rec := range records {
		out[rec.ID] = rec
	}
	return out, nil
}

// validateOwnership checks every token at the given instant before anything
// is mutated and returns the total minutes moved. The first offending token, in sorted order, is
// reported.
func validateOwnership(plan types.TransferPlan, tokens map[uuid.UUID]*TokenRecord, at time.Time) (int, error) {
	total := 0
	for _, id := range plan.TokenIDs {
		rec, ok := tokens[id]
		if !ok {
			return 0, types.TokenNotFoundError(id)
		}
		if rec.CurrentOwnerID != plan.SenderID {
			return 0, types.NotOwnerError(id)
		}
		token := toTokenDomain(rec)
		if !token.Spendable(at) {
			return 0, types.TokenInactiveError(id)
		}
		total += rec.Denomination
	}
	return total, nil
}

// replayTransfer returns the committed transaction for the plan idempotency
// key, or nil when there is none. A key reused for a different request is a
// conflict.
func (r *Repository) replayTransfer(ctx context.Context, tx bun.Tx, plan types.TransferPlan) (*types.Transaction, error) {
	if plan.IdempotencyKey == "" {
		return nil, nil
	}
	rec := &TransactionRecord{}
	err := tx.NewSelect().
		Model(rec).
		Where("sender_id = ?", plan.SenderID).
		Where("idempotency_key = ?", plan.IdempotencyKey).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	links, err := r.loadTransferLinks(ctx, tx, []uuid.UUID{rec.ID})
	if err != nil {
		return nil, err
	}
	existing := toTransactionDomain(rec, links[rec.ID])
	if !samePlan(existing, plan) {
		return nil, types.IdempotencyKeyReusedError(plan.IdempotencyKey)
	}
	return &existing, nil
}

func samePlan(existing types.Transaction, plan types.TransferPlan) bool {
	if existing.RecipientID != plan.RecipientID || existing.ServiceID != plan.ServiceID {
		return false
	}
	return slices.Equal(types.SortTokenIDs(existing.TokenIDs), types.SortTokenIDs(plan.TokenIDs))
}
