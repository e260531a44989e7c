package types

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Text codes carried by ledger errors. Transports serialize these verbatim.
const (
	TextCodeValidation           = "VALIDATION_FAILED"
	TextCodeUnauthenticated      = "UNAUTHENTICATED"
	TextCodeNotOwner             = "NOT_OWNER"
	TextCodeIssuanceDisabled     = "ISSUANCE_DISABLED"
	TextCodeRevocationForbidden  = "REVOCATION_FORBIDDEN"
	TextCodeHistoryForbidden     = "HISTORY_FORBIDDEN"
	TextCodeTokenNotFound        = "TOKEN_NOT_FOUND"
	TextCodeTransactionNotFound  = "TRANSACTION_NOT_FOUND"
	TextCodeTokenInactive        = "TOKEN_INACTIVE"
	TextCodeTransferConflict     = "TRANSFER_CONFLICT"
	TextCodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
	TextCodePersistence          = "PERSISTENCE_FAILURE"
)

// MetadataTokenID is the metadata key holding the offending token id.
const MetadataTokenID = "token_id"

// ValidationError reports a malformed request. Nothing was written.
func ValidationError(message string, fields ...goerrors.FieldError) *goerrors.Error {
	var err *goerrors.Error
	if len(fields) > 0 {
		err = goerrors.NewValidation(message, fields...)
	} else {
		err = goerrors.New(message, goerrors.CategoryValidation)
	}
	return err.WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation).
		WithSeverity(goerrors.SeverityError)
}

// FieldValidationError is a ValidationError describing a single field.
func FieldValidationError(field, message string) *goerrors.Error {
	return ValidationError("go-timebank: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	})
}

// AuthenticationError reports a missing or invalid credential.
func AuthenticationError(message string, source error) *goerrors.Error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryAuth, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryAuth)
	}
	return err.WithCode(http.StatusUnauthorized).WithTextCode(TextCodeUnauthenticated)
}

// NotOwnerError reports that the sender does not own tokenID.
func NotOwnerError(tokenID uuid.UUID) *goerrors.Error {
	return goerrors.New("go-timebank: sender does not own token", goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(TextCodeNotOwner).
		WithMetadata(tokenMetadata(tokenID))
}

// AuthorizationError reports a forbidden action that is not an ownership
// mismatch (issuance disabled, revocation by a non issuer).
func AuthorizationError(message, textCode string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(textCode)
}

// TokenNotFoundError reports that tokenID does not exist.
func TokenNotFoundError(tokenID uuid.UUID) *goerrors.Error {
	return goerrors.New("go-timebank: token not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeTokenNotFound).
		WithMetadata(tokenMetadata(tokenID))
}

// TransactionNotFoundError reports that a transaction does not exist.
func TransactionNotFoundError(transactionID uuid.UUID) *goerrors.Error {
	return goerrors.New("go-timebank: transaction not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeTransactionNotFound).
		WithMetadata(map[string]any{"transaction_id": transactionID.String()})
}

// TokenInactiveError reports that tokenID is inactive or past its expiry.
func TokenInactiveError(tokenID uuid.UUID) *goerrors.Error {
	return goerrors.New("go-timebank: token is not active", goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeTokenInactive).
		WithMetadata(tokenMetadata(tokenID))
}

// ConflictError reports a lost race or a lock that could not be acquired.
// The caller may retry.
func ConflictError(message string, source error) *goerrors.Error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryConflict, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryConflict)
	}
	return err.WithCode(http.StatusConflict).WithTextCode(TextCodeTransferConflict)
}

// IdempotencyKeyReusedError reports that a key was replayed with a different
// request body.
func IdempotencyKeyReusedError(key string) *goerrors.Error {
	return goerrors.New("go-timebank: idempotency key reused with a different request", goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(TextCodeIdempotencyKeyReused).
		WithMetadata(map[string]any{"idempotency_key": key})
}

// PersistenceError wraps an unexpected storage failure. The message exposed to
// callers stays generic; source keeps the driver detail for logs.
func PersistenceError(source error) *goerrors.Error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryInternal, "go-timebank: persistence failure")
	} else {
		err = goerrors.New("go-timebank: persistence failure", goerrors.CategoryInternal)
	}
	return err.WithCode(http.StatusInternalServerError).WithTextCode(TextCodePersistence)
}

func tokenMetadata(tokenID uuid.UUID) map[string]any {
	return map[string]any{MetadataTokenID: tokenID.String()}
}

// AsLedgerError extracts the go-errors envelope from err.
func AsLedgerError(err error) (*goerrors.Error, bool) {
	if err == nil {
		return nil, false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil {
		return nil, false
	}
	return rich, true
}

func hasTextCode(err error, code string) bool {
	rich, ok := AsLedgerError(err)
	return ok && rich.TextCode == code
}

func hasCategory(err error, category goerrors.Category) bool {
	rich, ok := AsLedgerError(err)
	return ok && rich.Category == category
}

// IsNotOwner reports whether err is an ownership mismatch.
func IsNotOwner(err error) bool { return hasTextCode(err, TextCodeNotOwner) }

// IsTokenNotFound reports whether err references a missing token.
func IsTokenNotFound(err error) bool { return hasTextCode(err, TextCodeTokenNotFound) }

// IsTokenInactive reports whether err references an inactive or expired token.
func IsTokenInactive(err error) bool { return hasTextCode(err, TextCodeTokenInactive) }

// IsNotFound reports whether err belongs to the not found category.
func IsNotFound(err error) bool { return hasCategory(err, goerrors.CategoryNotFound) }

// IsConflict reports whether err belongs to the conflict category.
func IsConflict(err error) bool { return hasCategory(err, goerrors.CategoryConflict) }

// IsValidation reports whether err belongs to the validation category.
func IsValidation(err error) bool { return hasCategory(err, goerrors.CategoryValidation) }

// IsAuthentication reports whether err belongs to the authentication category.
func IsAuthentication(err error) bool { return hasCategory(err, goerrors.CategoryAuth) }

// IsAuthorization reports whether err belongs to the authorization category.
func IsAuthorization(err error) bool { return hasCategory(err, goerrors.CategoryAuthz) }

// IsPersistence reports whether err is an unexpected storage failure.
func IsPersistence(err error) bool { return hasTextCode(err, TextCodePersistence) }

// OffendingToken returns the token id carried in err metadata, if any.
func OffendingToken(err error) (uuid.UUID, bool) {
	rich, ok := AsLedgerError(err)
	if !ok || rich.Metadata == nil {
		return uuid.Nil, false
	}
	raw, ok := rich.Metadata[MetadataTokenID].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
