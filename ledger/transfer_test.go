package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestExecuteTransfer_MovesTokensAndRecordsTransaction(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	alice, bob := uuid.New(), uuid.New()
	first := issueToken(t, repo, alice, 30)
	second := issueToken(t, repo, alice, 45)
	kept := issueToken(t, repo, alice, 60)
	serviceID := uuid.New()

	result, err := repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID:    alice,
		RecipientID: bob,
		ServiceID:   serviceID,
		TokenIDs:    []uuid.UUID{second.ID, first.ID},
	})
	require.NoError(t, err)
	require.False(t, result.Replayed)
	require.Equal(t, 2, result.Transaction.TokenCount)
	require.Equal(t, 75, result.Transaction.TotalMinutes)
	require.Equal(t, types.TransactionStatusCompleted, result.Transaction.Status)
	require.Equal(t, types.SortTokenIDs([]uuid.UUID{first.ID, second.ID}), result.Transaction.TokenIDs)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		token, err := repo.GetToken(ctx, id)
		require.NoError(t, err)
		require.Equal(t, bob, token.OwnerID)
		require.Equal(t, alice, token.IssuerID)
		require.True(t, token.IsActive)
	}
	untouched, err := repo.GetToken(ctx, kept.ID)
	require.NoError(t, err)
	require.Equal(t, alice, untouched.OwnerID)

	stored, err := repo.GetTransaction(ctx, result.Transaction.ID)
	require.NoError(t, err)
	require.Equal(t, alice, stored.SenderID)
	require.Equal(t, bob, stored.RecipientID)
	require.Equal(t, serviceID, stored.ServiceID)
	require.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, stored.TokenIDs)
	require.Equal(t, 2, countRows(t, repo.DB(), "token_transfers"))
}

func TestExecuteTransfer_NotOwnerLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	owned := issueToken(t, repo, alice, 30)
	foreign := issueToken(t, repo, carol, 30)

	_, err := repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID:    alice,
		RecipientID: bob,
		TokenIDs:    []uuid.UUID{owned.ID, foreign.ID},
	})
	require.Error(t, err)
	require.True(t, types.IsNotOwner(err))
	offending, ok := types.OffendingToken(err)
	require.True(t, ok)
	require.Equal(t, foreign.ID, offending)

	token, err := repo.GetToken(ctx, owned.ID)
	require.NoError(t, err)
	require.Equal(t, alice, token.OwnerID)
	require.Equal(t, 0, countRows(t, repo.DB(), "token_transactions"))
	require.Equal(t, 0, countRows(t, repo.DB(), "token_transfers"))
}

func TestExecuteTransfer_RejectsMissingToken(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	alice := uuid.New()
	owned := issueToken(t, repo, alice, 30)
	missing := uuid.New()

	_, err := repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID:    alice,
		RecipientID: uuid.New(),
		TokenIDs:    []uuid.UUID{owned.ID, missing},
	})
	require.True(t, types.IsTokenNotFound(err))
	offending, ok := types.OffendingToken(err)
	require.True(t, ok)
	require.Equal(t, missing, offending)
	require.Equal(t, 0, countRows(t, repo.DB(), "token_transactions"))
}

func TestExecuteTransfer_RejectsInactiveAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)
	alice := uuid.New()

	revoked := issueToken(t, repo, alice, 30)
	_, err := repo.DeactivateToken(ctx, types.DeactivateInput{TokenID: revoked.ID, Reason: types.DeactivationRevoked})
	require.NoError(t, err)

	_, err = repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID: alice, RecipientID: uuid.New(), TokenIDs: []uuid.UUID{revoked.ID},
	})
	require.True(t, types.IsTokenInactive(err))

	expiring, err := repo.CreateToken(ctx, types.TimeToken{
		IssuerID: alice, Denomination: 30, IsActive: true, ExpiresAt: clock.Peek().Add(time.Minute),
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID:    alice,
		RecipientID: uuid.New(),
		TokenIDs:    []uuid.UUID{expiring.ID},
	})
	require.True(t, types.IsTokenInactive(err))
	offending, ok := types.OffendingToken(err)
	require.True(t, ok)
	require.Equal(t, expiring.ID, offending)

	token, err := repo.GetToken(ctx, expiring.ID)
	require.NoError(t, err)
	require.Equal(t, alice, token.OwnerID)
}

func TestExecuteTransfer_ValidatesPlan(t *testing.T) {
	repo, _ := newTestRepository(t)
	alice := uuid.New()
	token := issueToken(t, repo, alice, 30)

	cases := map[string]types.TransferPlan{
		"missing sender":    {RecipientID: uuid.New(), TokenIDs: []uuid.UUID{token.ID}},
		"missing recipient": {SenderID: alice, TokenIDs: []uuid.UUID{token.ID}},
		"empty token set":   {SenderID: alice, RecipientID: uuid.New()},
		"duplicate tokens":  {SenderID: alice, RecipientID: uuid.New(), TokenIDs: []uuid.UUID{token.ID, token.ID}},
	}
	for name, plan := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.ExecuteTransfer(context.Background(), plan)
			require.True(t, types.IsValidation(err))
		})
	}
}

func TestExecuteTransfer_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	alice, bob := uuid.New(), uuid.New()
	token := issueToken(t, repo, alice, 30)

	plan := types.TransferPlan{
		SenderID:       alice,
		RecipientID:    bob,
		TokenIDs:       []uuid.UUID{token.ID},
		IdempotencyKey: "checkout-42",
	}
	first, err := repo.ExecuteTransfer(ctx, plan)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := repo.ExecuteTransfer(ctx, plan)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Transaction.ID, second.Transaction.ID)
	require.Equal(t, 1, countRows(t, repo.DB(), "token_transactions"))

	other := issueToken(t, repo, alice, 30)
	_, err = repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID:       alice,
		RecipientID:    bob,
		TokenIDs:       []uuid.UUID{other.ID},
		IdempotencyKey: "checkout-42",
	})
	require.True(t, types.IsConflict(err))
	rich, ok := types.AsLedgerError(err)
	require.True(t, ok)
	require.Equal(t, types.TextCodeIdempotencyKeyReused, rich.TextCode)
}

func TestExecuteTransfer_ConcurrentTransfersOfSameTokenCommitOnce(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	alice := uuid.New()
	token := issueToken(t, repo, alice, 30)

	recipients := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	errs := make([]error, len(recipients))
	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient uuid.UUID) {
			defer wg.Done()
			_, errs[i] = repo.ExecuteTransfer(ctx, types.TransferPlan{
				SenderID:    alice,
				RecipientID: recipient,
				TokenIDs:    []uuid.UUID{token.ID},
			})
		}(i, recipient)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, types.IsNotOwner(err) || types.IsConflict(err), "unexpected error: %v", err)
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, countRows(t, repo.DB(), "token_transactions"))

	final, err := repo.GetToken(ctx, token.ID)
	require.NoError(t, err)
	require.Contains(t, recipients, final.OwnerID)
}

// The transaction time is read from the store clock after the tokens are
// locked, so a chain of hops is always listed in the order it committed.
func TestExecuteTransfer_StampsCommitTimeAfterLocking(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)
	u, v, w := uuid.New(), uuid.New(), uuid.New()
	token := issueToken(t, repo, u, 30)

	before := clock.Peek()
	first, err := repo.ExecuteTransfer(ctx, types.TransferPlan{SenderID: u, RecipientID: v, TokenIDs: []uuid.UUID{token.ID}})
	require.NoError(t, err)
	second, err := repo.ExecuteTransfer(ctx, types.TransferPlan{SenderID: v, RecipientID: w, TokenIDs: []uuid.UUID{token.ID}})
	require.NoError(t, err)

	require.True(t, first.Transaction.CreatedAt.After(before))
	require.True(t, second.Transaction.CreatedAt.After(first.Transaction.CreatedAt))

	history, err := repo.ListTransactions(ctx, types.HistoryFilter{TokenID: token.ID})
	require.NoError(t, err)
	require.Len(t, history.Transactions, 2)
	require.Equal(t, first.Transaction.ID, history.Transactions[0].ID)
	require.Equal(t, second.Transaction.ID, history.Transactions[1].ID)
	require.Equal(t, u, history.Transactions[0].SenderID)
	require.Equal(t, v, history.Transactions[1].SenderID)

	owned, err := repo.GetToken(ctx, token.ID)
	require.NoError(t, err)
	require.Equal(t, w, owned.OwnerID)
	require.True(t, owned.UpdatedAt.Equal(second.Transaction.CreatedAt))
}

func TestExecuteTransfer_IntersectingSetsNeverMixOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newFileTestRepository(t, 8)
	alice := uuid.New()

	tokens := make([]uuid.UUID, 4)
	for i := range tokens {
		tokens[i] = issueToken(t, repo, alice, 15*(i+1)).ID
	}
	sets := [][]uuid.UUID{
		{tokens[0], tokens[1]},
		{tokens[1], tokens[2]},
		{tokens[3], tokens[0]},
		{tokens[2], tokens[3]},
		{tokens[1], tokens[3]},
	}
	recipients := make([]uuid.UUID, len(sets))
	errs := make([]error, len(sets))

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range sets {
		recipients[i] = uuid.New()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = repo.ExecuteTransfer(ctx, types.TransferPlan{
				SenderID:    alice,
				RecipientID: recipients[i],
				TokenIDs:    sets[i],
			})
		}(i)
	}
	close(start)
	wg.Wait()

	claimed := map[uuid.UUID]uuid.UUID{}
	succeeded := 0
	for i, err := range errs {
		if err != nil {
			require.True(t, types.IsNotOwner(err) || types.IsConflict(err), "set %d: unexpected error: %v", i, err)
			continue
		}
		succeeded++
		for _, id := range sets[i] {
			_, taken := claimed[id]
			require.False(t, taken, "token %s moved by two transfers", id)
			claimed[id] = recipients[i]
		}
	}
	require.GreaterOrEqual(t, succeeded, 1)
	require.Equal(t, succeeded, countRows(t, repo.DB(), "token_transactions"))

	for _, id := range tokens {
		token, err := repo.GetToken(ctx, id)
		require.NoError(t, err)
		if owner, ok := claimed[id]; ok {
			require.Equal(t, owner, token.OwnerID)
		} else {
			require.Equal(t, alice, token.OwnerID)
		}
	}
}

func TestListTransactions_ByTokenAndByUser(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	token := issueToken(t, repo, alice, 30)
	unrelated := issueToken(t, repo, carol, 15)

	hops := []struct{ from, to uuid.UUID }{{alice, bob}, {bob, carol}, {carol, alice}}
	var ids []uuid.UUID
	for _, hop := range hops {
		result, err := repo.ExecuteTransfer(ctx, types.TransferPlan{
			SenderID: hop.from, RecipientID: hop.to, TokenIDs: []uuid.UUID{token.ID},
		})
		require.NoError(t, err)
		ids = append(ids, result.Transaction.ID)
	}
	_, err := repo.ExecuteTransfer(ctx, types.TransferPlan{
		SenderID: carol, RecipientID: bob, TokenIDs: []uuid.UUID{unrelated.ID},
	})
	require.NoError(t, err)

	byToken, err := repo.ListTransactions(ctx, types.HistoryFilter{TokenID: token.ID})
	require.NoError(t, err)
	require.Equal(t, 3, byToken.Total)
	got := make([]uuid.UUID, 0, len(byToken.Transactions))
	for _, txn := range byToken.Transactions {
		got = append(got, txn.ID)
		require.Equal(t, []uuid.UUID{token.ID}, txn.TokenIDs)
	}
	require.Equal(t, ids, got)

	byUser, err := repo.ListTransactions(ctx, types.HistoryFilter{UserID: alice})
	require.NoError(t, err)
	require.Equal(t, 2, byUser.Total)
	require.Equal(t, ids[0], byUser.Transactions[0].ID)
	require.Equal(t, ids[2], byUser.Transactions[1].ID)
	require.True(t, byUser.Transactions[0].CreatedAt.Before(byUser.Transactions[1].CreatedAt))

	empty, err := repo.ListTransactions(ctx, types.HistoryFilter{UserID: uuid.New()})
	require.NoError(t, err)
	require.Empty(t, empty.Transactions)
}
