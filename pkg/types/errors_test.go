package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLedgerErrors_Taxonomy(t *testing.T) {
	tokenID := uuid.New()

	cases := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		status   int
		code     string
	}{
		{"validation", FieldValidationError("denomination", "must be positive"), goerrors.CategoryValidation, http.StatusBadRequest, TextCodeValidation},
		{"authentication", AuthenticationError("missing credential", nil), goerrors.CategoryAuth, http.StatusUnauthorized, TextCodeUnauthenticated},
		{"not owner", NotOwnerError(tokenID), goerrors.CategoryAuthz, http.StatusForbidden, TextCodeNotOwner},
		{"issuance disabled", AuthorizationError("disabled", TextCodeIssuanceDisabled), goerrors.CategoryAuthz, http.StatusForbidden, TextCodeIssuanceDisabled},
		{"token not found", TokenNotFoundError(tokenID), goerrors.CategoryNotFound, http.StatusNotFound, TextCodeTokenNotFound},
		{"transaction not found", TransactionNotFoundError(uuid.New()), goerrors.CategoryNotFound, http.StatusNotFound, TextCodeTransactionNotFound},
		{"inactive", TokenInactiveError(tokenID), goerrors.CategoryConflict, http.StatusConflict, TextCodeTokenInactive},
		{"conflict", ConflictError("lost race", nil), goerrors.CategoryConflict, http.StatusConflict, TextCodeTransferConflict},
		{"idempotency", IdempotencyKeyReusedError("k1"), goerrors.CategoryConflict, http.StatusConflict, TextCodeIdempotencyKeyReused},
		{"persistence", PersistenceError(errors.New("disk full")), goerrors.CategoryInternal, http.StatusInternalServerError, TextCodePersistence},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.category, tc.err.Category)
			require.Equal(t, tc.status, tc.err.Code)
			require.Equal(t, tc.code, tc.err.TextCode)
		})
	}
}

func TestLedgerErrors_PredicatesSurviveWrapping(t *testing.T) {
	tokenID := uuid.New()
	wrapped := fmt.Errorf("transfer: %w", NotOwnerError(tokenID))

	require.True(t, IsNotOwner(wrapped))
	require.False(t, IsTokenInactive(wrapped))
	require.False(t, IsConflict(wrapped))

	offending, ok := OffendingToken(wrapped)
	require.True(t, ok)
	require.Equal(t, tokenID, offending)

	require.True(t, IsTokenInactive(TokenInactiveError(tokenID)))
	require.True(t, IsConflict(TokenInactiveError(tokenID)))
	require.True(t, IsTokenNotFound(TokenNotFoundError(tokenID)))
	require.True(t, IsNotFound(TokenNotFoundError(tokenID)))
	require.True(t, IsValidation(ValidationError("bad")))
	require.True(t, IsAuthentication(AuthenticationError("nope", errors.New("expired"))))
	require.True(t, IsPersistence(PersistenceError(nil)))
}

func TestOffendingToken_AbsentForPlainErrors(t *testing.T) {
	_, ok := OffendingToken(errors.New("plain"))
	require.False(t, ok)

	_, ok = OffendingToken(ConflictError("lost race", nil))
	require.False(t, ok)

	_, ok = OffendingToken(nil)
	require.False(t, ok)
}
