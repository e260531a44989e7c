package authctx

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestResolveActorContext(t *testing.T) {
	memberID := uuid.NewString()

	t.Run("stored actor wins over claims", func(t *testing.T) {
		ctx := auth.WithClaimsContext(context.Background(), &stubClaims{subject: uuid.NewString(), uid: uuid.NewString()})
		ctx = Attach(ctx, &auth.ActorContext{ActorID: memberID, Role: types.ActorTypeMember})

		actor, err := ResolveActorContext(ctx)
		require.NoError(t, err)
		require.Equal(t, memberID, actor.ActorID)
	})

	t.Run("claims fallback", func(t *testing.T) {
		ctx := auth.WithClaimsContext(context.Background(), &stubClaims{subject: memberID, uid: memberID, role: types.ActorTypeMember})

		actor, err := ResolveActorContext(ctx)
		require.NoError(t, err)
		require.Equal(t, memberID, actor.ActorID)
	})

	t.Run("missing actor", func(t *testing.T) {
		_, err := ResolveActorContext(context.Background())
		require.Error(t, err)

		var rich *errors.Error
		require.True(t, errors.As(err, &rich))
		require.Equal(t, types.TextCodeUnauthenticated, rich.TextCode)
		require.Equal(t, textCodeActorMissing, TextCode(err))
	})
}

func TestActorRefFromActorContext(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name     string
		actor    *auth.ActorContext
		wantType string
		invalid  bool
	}{
		{name: "role kept", actor: &auth.ActorContext{ActorID: id.String(), Role: "System"}, wantType: types.ActorTypeSystem},
		{name: "empty role is member", actor: &auth.ActorContext{ActorID: id.String()}, wantType: types.ActorTypeMember},
		{name: "subject fallback", actor: &auth.ActorContext{Subject: id.String()}, wantType: types.ActorTypeMember},
		{name: "nil payload", invalid: true},
		{name: "malformed id", actor: &auth.ActorContext{ActorID: "not-a-uuid"}, invalid: true},
		{name: "nil uuid", actor: &auth.ActorContext{ActorID: uuid.Nil.String()}, invalid: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := ActorRefFromActorContext(tc.actor)
			if tc.invalid {
				require.True(t, types.IsAuthentication(err))
				require.Equal(t, textCodeActorInvalid, TextCode(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, id, ref.ID)
			require.Equal(t, tc.wantType, ref.Type)
		})
	}
}

func TestWithActorResolvesLedgerActor(t *testing.T) {
	id := uuid.New()
	ref, err := ResolveActor(WithActor(context.Background(), id, types.ActorTypeMember))
	require.NoError(t, err)
	require.Equal(t, id, ref.ID)
	require.True(t, ref.IsRole(types.ActorTypeMember))
	require.False(t, ref.IsSystem())
}

func TestTextCodeWithoutReason(t *testing.T) {
	require.Empty(t, TextCode(nil))
	require.Empty(t, TextCode(errors.New("plain", errors.CategoryInternal)))
}

type stubClaims struct {
	subject string
	uid     string
	role    string
}

func (s *stubClaims) Subject() string                  { return s.subject }
func (s *stubClaims) UserID() string                   { return s.uid }
func (s *stubClaims) Role() string                     { return s.role }
func (s *stubClaims) CanRead(string) bool              { return true }
func (s *stubClaims) CanEdit(string) bool              { return false }
func (s *stubClaims) CanCreate(string) bool            { return false }
func (s *stubClaims) CanDelete(string) bool            { return false }
func (s *stubClaims) HasRole(role string) bool         { return s.role == role }
func (s *stubClaims) IsAtLeast(string) bool            { return false }
func (s *stubClaims) Expires() time.Time               { return time.Time{} }
func (s *stubClaims) IssuedAt() time.Time              { return time.Time{} }
func (s *stubClaims) ResourceRoles() map[string]string { return nil }
func (s *stubClaims) ClaimsMetadata() map[string]any   { return nil }
