package crudsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-crud"
	"github.com/goliatone/go-timebank/crudguard"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/query"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTransactionServiceIndexForwardsSelectors(t *testing.T) {
	actor := types.ActorRef{ID: uuid.New()}
	tokenID := uuid.New()
	history := &stubHistoryQuery{page: types.TransactionPage{
		Transactions: []types.Transaction{{
			ID:           uuid.New(),
			SenderID:     actor.ID,
			RecipientID:  uuid.New(),
			Status:       types.TransactionStatusCompleted,
			TokenIDs:     []uuid.UUID{tokenID},
			TokenCount:   1,
			TotalMinutes: 30,
		}},
		Total: 1,
	}}
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: actor}}
	svc := NewTransactionService(TransactionServiceConfig{Guard: guard, History: history})

	ctx := newTestCrudContext(context.Background())
	ctx.queries["token_id"] = tokenID.String()
	ctx.queries["limit"] = "5"

	records, total, err := svc.Index(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, 30, records[0].TotalMinutes)
	require.Equal(t, string(types.TransactionStatusCompleted), records[0].Status)
	require.Equal(t, tokenID, history.last.TokenID)
	require.Equal(t, actor, history.last.Actor)
	require.Equal(t, 5, history.last.Pagination.Limit)
	require.Equal(t, crud.OpList, guard.last.Operation)
}

func TestTransactionServiceIndexRejectsBadSelector(t *testing.T) {
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: types.ActorRef{ID: uuid.New()}}}
	svc := NewTransactionService(TransactionServiceConfig{Guard: guard, History: &stubHistoryQuery{}})
	ctx := newTestCrudContext(context.Background())
	ctx.queries["user_id"] = "nope"

	_, _, err := svc.Index(ctx, nil)
	require.True(t, types.IsValidation(err))
}

func TestTransactionServiceShowUsesDetailQuery(t *testing.T) {
	actor := types.ActorRef{ID: uuid.New()}
	txnID := uuid.New()
	detail := &stubTransactionDetailQuery{txn: &types.Transaction{ID: txnID, SenderID: actor.ID, TokenCount: 2}}
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: actor}}
	svc := NewTransactionService(TransactionServiceConfig{Guard: guard, Detail: detail})

	record, err := svc.Show(newTestCrudContext(context.Background()), txnID.String(), nil)
	require.NoError(t, err)
	require.Equal(t, txnID, record.ID)
	require.Equal(t, txnID, detail.last.TransactionID)
	require.Equal(t, txnID, guard.last.TargetID)

	_, err = svc.Show(newTestCrudContext(context.Background()), "bad", nil)
	require.True(t, types.IsValidation(err))
}

func TestTransactionServiceWritesAreDisabled(t *testing.T) {
	svc := NewTransactionService(TransactionServiceConfig{})
	ctx := newTestCrudContext(context.Background())

	_, err := svc.Create(ctx, nil)
	require.Error(t, err)
	_, err = svc.Update(ctx, nil)
	require.Error(t, err)
	require.Error(t, svc.Delete(ctx, nil))
	require.Error(t, svc.DeleteBatch(ctx, nil))
}

func TestTransactionServiceGuardErrorStopsQuery(t *testing.T) {
	history := &stubHistoryQuery{}
	guard := &stubGuardAdapter{err: types.AuthenticationError("go-timebank: missing actor", nil)}
	svc := NewTransactionService(TransactionServiceConfig{Guard: guard, History: history})

	_, _, err := svc.Index(newTestCrudContext(context.Background()), nil)
	require.True(t, types.IsAuthentication(err))
	require.Equal(t, 0, history.calls)
}

func TestTokenServiceIndexListsWallet(t *testing.T) {
	actor := types.ActorRef{ID: uuid.New()}
	owner := uuid.New()
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	wallet := &stubWalletQuery{page: types.TokenPage{
		Tokens: []types.TimeToken{{ID: uuid.New(), OwnerID: owner, IssuerID: owner, Denomination: 60, IsActive: true, ExpiresAt: expires}},
		Total:  1,
	}}
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: actor}}
	svc := NewTokenService(TokenServiceConfig{Guard: guard, Wallet: wallet})

	ctx := newTestCrudContext(context.Background())
	ctx.queries["owner_id"] = owner.String()
	ctx.queries["active"] = "true"

	records, total, err := svc.Index(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, owner, records[0].CurrentOwnerID)
	require.NotNil(t, records[0].ExpiresAt)
	require.True(t, wallet.last.ActiveOnly)
	require.Equal(t, owner, wallet.last.OwnerID)
}

func TestTokenServiceShowPropagatesNotFound(t *testing.T) {
	missing := uuid.New()
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: types.ActorRef{ID: uuid.New()}}}
	svc := NewTokenService(TokenServiceConfig{Guard: guard, Detail: &stubTokenDetailQuery{err: types.TokenNotFoundError(missing)}})

	_, err := svc.Show(newTestCrudContext(context.Background()), missing.String(), nil)
	require.True(t, types.IsTokenNotFound(err))
}

func TestActivityServiceIndexPassesFilter(t *testing.T) {
	actor := types.ActorRef{ID: uuid.New()}
	feed := &stubActivityFeedQuery{result: types.ActivityPage{
		Records: []types.ActivityRecord{{ID: uuid.New(), ActorID: actor.ID, Verb: "token.transferred"}},
		Total:   1,
	}}
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: actor}}
	svc := NewActivityService(ActivityServiceConfig{Guard: guard, FeedQuery: feed})

	ctx := newTestCrudContext(context.Background())
	ctx.queries["verb"] = "token.transferred, token.issued"
	ctx.queries["since"] = "2025-01-01T00:00:00Z"

	entries, total, err := svc.Index(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "token.transferred", entries[0].Verb)
	require.Equal(t, []string{"token.transferred", "token.issued"}, feed.last.Filter.Verbs)
	require.NotNil(t, feed.last.Filter.Since)
	require.Equal(t, actor, feed.last.Actor)
}

func TestActivityServiceIndexRejectsMalformedWindow(t *testing.T) {
	feed := &stubActivityFeedQuery{}
	guard := &stubGuardAdapter{result: crudguard.GuardResult{Actor: types.ActorRef{ID: uuid.New()}}}
	svc := NewActivityService(ActivityServiceConfig{Guard: guard, FeedQuery: feed})

	ctx := newTestCrudContext(context.Background())
	ctx.queries["channel"] = "member"
	ctx.queries["until"] = "yesterday"
	ctx.queries["limit"] = "ten"

	_, _, err := svc.Index(ctx, nil)
	require.True(t, types.IsValidation(err))
	require.Empty(t, feed.last.Filter.Channel)
}

func TestActivityServiceMissingQuery(t *testing.T) {
	svc := NewActivityService(ActivityServiceConfig{Guard: &stubGuardAdapter{}})
	_, _, err := svc.Index(newTestCrudContext(context.Background()), nil)
	require.Error(t, err)
}

// helpers

type stubGuardAdapter struct {
	result crudguard.GuardResult
	err    error
	last   crudguard.GuardInput
}

func (s *stubGuardAdapter) Enforce(in crudguard.GuardInput) (crudguard.GuardResult, error) {
	s.last = in
	if s.err != nil {
		return crudguard.GuardResult{}, s.err
	}
	res := s.result
	res.Operation = in.Operation
	return res, nil
}

type stubHistoryQuery struct {
	page  types.TransactionPage
	last  types.HistoryFilter
	calls int
}

func (s *stubHistoryQuery) Query(_ context.Context, filter types.HistoryFilter) (types.TransactionPage, error) {
	s.calls++
	s.last = filter
	return s.page, nil
}

type stubTransactionDetailQuery struct {
	txn  *types.Transaction
	last query.TransactionDetailInput
}

func (s *stubTransactionDetailQuery) Query(_ context.Context, input query.TransactionDetailInput) (*types.Transaction, error) {
	s.last = input
	if s.txn == nil {
		return nil, types.TransactionNotFoundError(input.TransactionID)
	}
	return s.txn, nil
}

type stubWalletQuery struct {
	page types.TokenPage
	last query.WalletInput
}

func (s *stubWalletQuery) Query(_ context.Context, input query.WalletInput) (types.TokenPage, error) {
	s.last = input
	return s.page, nil
}

type stubTokenDetailQuery struct {
	token *types.TimeToken
	err   error
}

func (s *stubTokenDetailQuery) Query(context.Context, query.TokenDetailInput) (*types.TimeToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.token == nil {
		return nil, errors.New("no token configured")
	}
	return s.token, nil
}

type stubActivityFeedQuery struct {
	result types.ActivityPage
	last   query.ActivityFeedInput
}

func (s *stubActivityFeedQuery) Query(_ context.Context, input query.ActivityFeedInput) (types.ActivityPage, error) {
	s.last = input
	return s.result, nil
}

type testCrudContext struct {
	ctx     context.Context
	queries map[string]string
}

func newTestCrudContext(ctx context.Context) *testCrudContext {
	return &testCrudContext{
		ctx:     ctx,
		queries: map[string]string{},
	}
}

func (t *testCrudContext) UserContext() context.Context {
	return t.ctx
}

func (t *testCrudContext) Params(string, ...string) string {
	return ""
}

func (t *testCrudContext) BodyParser(out any) error {
	return nil
}

func (t *testCrudContext) Query(key string, defaultValue ...string) string {
	if v, ok := t.queries[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (t *testCrudContext) QueryValues(key string) []string {
	if v, ok := t.queries[key]; ok {
		return []string{v}
	}
	return nil
}

func (t *testCrudContext) QueryInt(string, ...int) int {
	return 0
}

func (t *testCrudContext) Queries() map[string]string {
	return t.queries
}

func (t *testCrudContext) Body() []byte {
	return nil
}

func (t *testCrudContext) Status(int) crud.Response {
	return t
}

func (t *testCrudContext) JSON(any, ...string) error {
	return nil
}

func (t *testCrudContext) SendStatus(int) error {
	return nil
}
