package api

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-timebank/pkg/types"
)

const (
	textCodeInternal = "INTERNAL_ERROR"
	internalMessage  = "internal error"
)

// ErrorBody is the JSON envelope returned for every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure without leaking storage detail.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	TokenID string              `json:"token_id,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// StatusFor maps err to the HTTP status of its category.
func StatusFor(err error) int {
	rich, ok := types.AsLedgerError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch rich.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Envelope builds the error body for err. Internal failures are reported with
// a generic message.
func Envelope(err error) ErrorBody {
	status := StatusFor(err)
	rich, ok := types.AsLedgerError(err)
	if !ok || status == http.StatusInternalServerError {
		code := textCodeInternal
		if ok && rich.TextCode != "" {
			code = rich.TextCode
		}
		return ErrorBody{Error: ErrorDetail{Code: code, Message: internalMessage}}
	}

	detail := ErrorDetail{
		Code:    rich.TextCode,
		Message: rich.Message,
	}
	if detail.Code == "" {
		detail.Code = types.TextCodeValidation
	}
	if tokenID, found := types.OffendingToken(err); found {
		detail.TokenID = tokenID.String()
	}
	if len(rich.ValidationErrors) > 0 {
		detail.Fields = make(map[string][]string, len(rich.ValidationErrors))
		for _, field := range rich.ValidationErrors {
			detail.Fields[field.Field] = append(detail.Fields[field.Field], field.Message)
		}
	}
	return ErrorBody{Error: detail}
}
