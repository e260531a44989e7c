package activity

import (
	"context"
	"database/sql"
	"fmt"
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

func TestRepository_LogAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestActivityDB(t)
	applyActivityDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	actor := uuid.New()
	event := BuildRecord(types.ActorRef{ID: actor}, VerbTokensTransferred, ObjectTypeTransaction, "txn-1", map[string]any{
		"recipient_id":  uuid.NewString(),
		"total_minutes": 90,
	})
	require.NoError(t, store.Log(ctx, event))
	require.NoError(t, store.Log(ctx, BuildRecord(types.ActorRef{ID: actor}, VerbTokenIssued, ObjectTypeToken, "tok-1", nil)))

	page, err := store.ListActivity(ctx, types.ActivityFilter{
		Verbs:      []string{VerbTokensTransferred},
		Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, VerbTokensTransferred, page.Records[0].Verb)
	require.Equal(t, ChannelLedger, page.Records[0].Channel)
	require.EqualValues(t, 90, page.Records[0].Data["total_minutes"])

	all, err := store.ListActivity(ctx, types.ActivityFilter{ActorID: actor})
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)
}

func TestRepository_ListFiltersByObjectAndWindow(t *testing.T) {
	ctx := context.Background()
	db := newTestActivityDB(t)
	applyActivityDDL(t, db)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, objectID := range []string{"a", "b", "a"} {
		record := BuildRecord(types.ActorRef{ID: uuid.New()}, VerbTokenRevoked, ObjectTypeToken, objectID, nil)
		record.OccurredAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Log(ctx, record))
	}

	page, err := store.ListActivity(ctx, types.ActivityFilter{ObjectType: ObjectTypeToken, ObjectID: "a"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	since := base.Add(30 * time.Minute)
	page, err = store.ListActivity(ctx, types.ActivityFilter{Since: &since})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, "a", page.Records[0].ObjectID)
}

func TestRepository_ListFiltersByChannelAndParticipant(t *testing.T) {
	ctx := context.Background()
	db := newTestActivityDB(t)
	applyActivityDDL(t, db)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	member := uuid.New()
	require.NoError(t, store.Log(ctx, BuildRecord(types.ActorRef{ID: member}, VerbTokenIssued, ObjectTypeToken, "tok-1", nil)))
	note := BuildRecord(types.ActorRef{ID: member}, "service.rendered", "", "", map[string]any{"credential": "bearer-abcdef"},
		WithChannel("member"))
	require.NoError(t, store.Log(ctx, note))
	require.NoError(t, store.Log(ctx, BuildRecord(types.ActorRef{ID: uuid.New()}, VerbTokenIssued, ObjectTypeToken, "tok-2", nil)))

	page, err := store.ListActivity(ctx, types.ActivityFilter{Channel: "member"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "service.rendered", page.Records[0].Verb)
	require.NotEqual(t, "bearer-abcdef", page.Records[0].Data["credential"])

	page, err = store.ListActivity(ctx, types.ActivityFilter{UserID: member, ActorID: member, Pagination: types.Pagination{Limit: 1}})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Len(t, page.Records, 1)
	require.True(t, page.HasMore)
	require.Equal(t, 1, page.NextOffset)
}

func newTestActivityDB(t *testing.T) *bun.DB {
	dsn := fmt.Sprintf("file:activity-%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyActivityDDL(t *testing.T, db *bun.DB) {
	t.Helper()
	require.NoError(t, migrations.ApplySQLite(context.Background(), db.DB))
}
