package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/command"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/migrations"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/query"
	"github.com/goliatone/go-timebank/service"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, credential string) (uuid.UUID, error) {
	return uuid.Parse(credential)
}

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:service-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	require.NoError(t, migrations.ApplySQLite(ctx, sqldb))

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	ledgerRepo, err := ledger.NewRepository(ledger.RepositoryConfig{DB: db})
	require.NoError(t, err)
	activityRepo, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)

	svc := service.New(service.Config{
		TokenStore:       ledgerRepo,
		ActivitySink:     activityRepo,
		IdentityResolver: staticResolver{},
	})
	require.NoError(t, svc.HealthCheck(ctx))
	return svc
}

func issue(t *testing.T, svc *service.Service, owner uuid.UUID, minutes int) types.TimeToken {
	t.Helper()
	token := &types.TimeToken{}
	err := svc.Commands().IssueToken.Execute(context.Background(), command.IssueTokenInput{
		Actor:        types.ActorRef{ID: owner},
		Denomination: minutes,
		Result:       token,
	})
	require.NoError(t, err)
	return *token
}

func TestService_HealthCheckReportsMissingDependencies(t *testing.T) {
	ctx := context.Background()

	err := service.New(service.Config{}).HealthCheck(ctx)
	require.ErrorIs(t, err, types.ErrMissingTokenStore)

	var nilService *service.Service
	require.ErrorIs(t, nilService.HealthCheck(ctx), types.ErrServiceNotReady)
	require.False(t, nilService.Ready())
}

func TestService_IssueTransferAndRead(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.True(t, svc.Ready())

	alice, bob := uuid.New(), uuid.New()
	first := issue(t, svc, alice, 30)
	second := issue(t, svc, alice, 60)
	issue(t, svc, alice, 15)

	transfer := &command.TransferTokensResult{}
	err := svc.Commands().TransferTokens.Execute(ctx, command.TransferTokensInput{
		Actor:          types.ActorRef{ID: alice},
		RecipientID:    bob,
		TokenIDs:       []uuid.UUID{first.ID, second.ID},
		IdempotencyKey: "session-7",
		Result:         transfer,
	})
	require.NoError(t, err)
	require.Equal(t, 90, transfer.TotalMinutes)
	require.Equal(t, 2, transfer.TokenCount)

	bobWallet, err := svc.Queries().Wallet.Query(ctx, query.WalletInput{Actor: types.ActorRef{ID: bob}})
	require.NoError(t, err)
	require.Equal(t, 90, bobWallet.ActiveMinutes)
	require.Len(t, bobWallet.Tokens, 2)

	aliceWallet, err := svc.Queries().Wallet.Query(ctx, query.WalletInput{Actor: types.ActorRef{ID: alice}})
	require.NoError(t, err)
	require.Equal(t, 15, aliceWallet.ActiveMinutes)

	detail, err := svc.Queries().TransactionDetail.Query(ctx, query.TransactionDetailInput{
		Actor:         types.ActorRef{ID: bob},
		TransactionID: transfer.TransactionID,
	})
	require.NoError(t, err)
	require.Equal(t, alice, detail.SenderID)

	history, err := svc.Queries().TransactionHistory.Query(ctx, types.HistoryFilter{
		Actor:   types.ActorRef{ID: bob},
		TokenID: first.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, history.Total)

	_, err = svc.Queries().TransactionHistory.Query(ctx, types.HistoryFilter{
		Actor:  types.ActorRef{ID: bob},
		UserID: alice,
	})
	require.True(t, types.IsAuthorization(err))

	feed, err := svc.Queries().ActivityFeed.Query(ctx, query.ActivityFeedInput{
		Actor:  types.ActorRef{ID: alice},
		Filter: types.ActivityFilter{Verbs: []string{activity.VerbTokensTransferred}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, feed.Total)
	require.Equal(t, activity.VerbTokensTransferred, feed.Records[0].Verb)
}

func TestService_TransferReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alice, bob := uuid.New(), uuid.New()
	token := issue(t, svc, alice, 45)

	input := command.TransferTokensInput{
		Actor:          types.ActorRef{ID: alice},
		RecipientID:    bob,
		TokenIDs:       []uuid.UUID{token.ID},
		IdempotencyKey: "retry-1",
	}
	first := &command.TransferTokensResult{}
	input.Result = first
	require.NoError(t, svc.Commands().TransferTokens.Execute(ctx, input))

	second := &command.TransferTokensResult{}
	input.Result = second
	require.NoError(t, svc.Commands().TransferTokens.Execute(ctx, input))
	require.True(t, second.Replayed)
	require.Equal(t, first.TransactionID, second.TransactionID)
}

func TestService_RevokeAndExpire(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	alice := uuid.New()
	kept := issue(t, svc, alice, 30)

	revoked := &types.TimeToken{}
	err := svc.Commands().RevokeToken.Execute(ctx, command.RevokeTokenInput{
		Actor:   types.ActorRef{ID: alice},
		TokenID: kept.ID,
		Result:  revoked,
	})
	require.NoError(t, err)
	require.False(t, revoked.IsActive)

	expiresAt := time.Now().Add(time.Minute)
	expiring := &types.TimeToken{}
	err = svc.Commands().IssueToken.Execute(ctx, command.IssueTokenInput{
		Actor:        types.ActorRef{ID: alice},
		Denomination: 20,
		ExpiresAt:    &expiresAt,
		Result:       expiring,
	})
	require.NoError(t, err)

	sweep := &command.ExpireTokensResult{}
	err = svc.Commands().ExpireTokens.Execute(ctx, command.ExpireTokensInput{
		Actor:  types.SystemActor(),
		Now:    expiresAt.Add(time.Hour),
		Result: sweep,
	})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{expiring.ID}, sweep.TokenIDs)

	wallet, err := svc.Queries().Wallet.Query(ctx, query.WalletInput{Actor: types.ActorRef{ID: alice}})
	require.NoError(t, err)
	require.Equal(t, 0, wallet.ActiveMinutes)
}
