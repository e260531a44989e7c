package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-timebank/command"
	"github.com/goliatone/go-timebank/pkg/authctx"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/query"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client supplied transfer key.
const IdempotencyKeyHeader = "Idempotency-Key"

// requestContext is the subset of router.Context the handlers use.
type requestContext interface {
	Context() context.Context
	Header(key string) string
	Param(name string, defaultValue ...string) string
	Query(name string, defaultValue ...string) string
	Body() []byte
	JSON(code int, v any) error
}

// HandlerConfig wires the command and query facades served over HTTP.
type HandlerConfig struct {
	IssueToken         gocommand.Commander[command.IssueTokenInput]
	TransferTokens     gocommand.Commander[command.TransferTokensInput]
	RevokeToken        gocommand.Commander[command.RevokeTokenInput]
	LogActivity        gocommand.Commander[command.ActivityLogInput]
	TokenDetail        gocommand.Querier[query.TokenDetailInput, *types.TimeToken]
	Wallet             gocommand.Querier[query.WalletInput, types.TokenPage]
	TransactionHistory gocommand.Querier[types.HistoryFilter, types.TransactionPage]
	TransactionDetail  gocommand.Querier[query.TransactionDetailInput, *types.Transaction]
	ActivityFeed       gocommand.Querier[query.ActivityFeedInput, types.ActivityPage]
	Identity           types.IdentityResolver
	Logger             types.Logger
}

// Handler serves the ledger routes.
type Handler struct {
	cfg    HandlerConfig
	logger types.Logger
}

// NewHandler validates cfg and returns a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Identity == nil {
		return nil, types.ErrMissingIdentityResolver
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Handler{cfg: cfg, logger: logger}, nil
}

type issueRequest struct {
	Denomination int        `json:"denomination"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

type transferRequest struct {
	RecipientID    uuid.UUID   `json:"recipient_id"`
	TokenIDs       []uuid.UUID `json:"token_ids"`
	ServiceID      uuid.UUID   `json:"service_id"`
	IdempotencyKey string      `json:"idempotency_key"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type activityRequest struct {
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Data       map[string]any `json:"data"`
}

// IssueToken handles POST /tokens.
func (h *Handler) IssueToken(c router.Context) error { return h.issueToken(c) }

// TransferTokens handles POST /tokens/transfer.
func (h *Handler) TransferTokens(c router.Context) error { return h.transferTokens(c) }

// RevokeToken handles POST /tokens/:id/revoke.
func (h *Handler) RevokeToken(c router.Context) error { return h.revokeToken(c) }

// TokenDetail handles GET /tokens/:id.
func (h *Handler) TokenDetail(c router.Context) error { return h.tokenDetail(c) }

// Wallet handles GET /tokens.
func (h *Handler) Wallet(c router.Context) error { return h.wallet(c) }

// TokenHistory handles GET /tokens/:id/history.
func (h *Handler) TokenHistory(c router.Context) error { return h.tokenHistory(c) }

// UserHistory handles GET /transactions/history.
func (h *Handler) UserHistory(c router.Context) error { return h.userHistory(c) }

// TransactionDetail handles GET /transactions/:id.
func (h *Handler) TransactionDetail(c router.Context) error { return h.transactionDetail(c) }

// ActivityFeed handles GET /activity.
func (h *Handler) ActivityFeed(c router.Context) error { return h.activityFeed(c) }

// LogActivity handles POST /activity.
func (h *Handler) LogActivity(c router.Context) error { return h.logActivity(c) }

func (h *Handler) issueToken(c requestContext) error {
	if h.cfg.IssueToken == nil {
		return h.unavailable(c, "issue")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req issueRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	token := &types.TimeToken{}
	if err := h.cfg.IssueToken.Execute(c.Context(), command.IssueTokenInput{
		Actor:        actor,
		Denomination: req.Denomination,
		ExpiresAt:    req.ExpiresAt,
		Result:       token,
	}); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, tokenView(*token))
}

func (h *Handler) transferTokens(c requestContext) error {
	if h.cfg.TransferTokens == nil {
		return h.unavailable(c, "transfer")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req transferRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	key := strings.TrimSpace(c.Header(IdempotencyKeyHeader))
	if key == "" {
		key = req.IdempotencyKey
	}
	result := &command.TransferTokensResult{}
	if err := h.cfg.TransferTokens.Execute(c.Context(), command.TransferTokensInput{
		Actor:          actor,
		RecipientID:    req.RecipientID,
		TokenIDs:       req.TokenIDs,
		ServiceID:      req.ServiceID,
		IdempotencyKey: key,
		Result:         result,
	}); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, transferView(*result))
}

func (h *Handler) revokeToken(c requestContext) error {
	if h.cfg.RevokeToken == nil {
		return h.unavailable(c, "revoke")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	tokenID, err := pathUUID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req revokeRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	token := &types.TimeToken{}
	if err := h.cfg.RevokeToken.Execute(c.Context(), command.RevokeTokenInput{
		Actor:   actor,
		TokenID: tokenID,
		Reason:  req.Reason,
		Result:  token,
	}); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, tokenView(*token))
}

func (h *Handler) tokenDetail(c requestContext) error {
	if h.cfg.TokenDetail == nil {
		return h.unavailable(c, "token detail")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	tokenID, err := pathUUID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	token, err := h.cfg.TokenDetail.Query(c.Context(), query.TokenDetailInput{Actor: actor, TokenID: tokenID})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, tokenView(*token))
}

func (h *Handler) wallet(c requestContext) error {
	if h.cfg.Wallet == nil {
		return h.unavailable(c, "wallet")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	owner, err := queryUUID(c, "owner_id")
	if err != nil {
		return h.fail(c, err)
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return h.fail(c, err)
	}
	window, err := pagination(c)
	if err != nil {
		return h.fail(c, err)
	}
	page, err := h.cfg.Wallet.Query(c.Context(), query.WalletInput{
		Actor:      actor,
		OwnerID:    owner,
		ActiveOnly: active,
		Pagination: window,
	})
	if err != nil {
		return h.fail(c, err)
	}
	if owner == uuid.Nil {
		owner = actor.ID
	}
	return c.JSON(http.StatusOK, walletView(owner, page))
}

func (h *Handler) tokenHistory(c requestContext) error {
	tokenID, err := pathUUID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	return h.history(c, types.HistoryFilter{TokenID: tokenID})
}

func (h *Handler) userHistory(c requestContext) error {
	userID, err := queryUUID(c, "user_id")
	if err != nil {
		return h.fail(c, err)
	}
	return h.history(c, types.HistoryFilter{UserID: userID})
}

func (h *Handler) history(c requestContext, filter types.HistoryFilter) error {
	if h.cfg.TransactionHistory == nil {
		return h.unavailable(c, "history")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	filter.Actor = actor
	if filter.Pagination, err = pagination(c); err != nil {
		return h.fail(c, err)
	}
	page, err := h.cfg.TransactionHistory.Query(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, historyView(page))
}

func (h *Handler) transactionDetail(c requestContext) error {
	if h.cfg.TransactionDetail == nil {
		return h.unavailable(c, "transaction detail")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	txnID, err := pathUUID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	txn, err := h.cfg.TransactionDetail.Query(c.Context(), query.TransactionDetailInput{
		Actor:         actor,
		TransactionID: txnID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, transactionView(*txn))
}

func (h *Handler) activityFeed(c requestContext) error {
	if h.cfg.ActivityFeed == nil {
		return h.unavailable(c, "activity")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	filter := types.ActivityFilter{
		ObjectType: strings.TrimSpace(c.Query("object_type")),
		ObjectID:   strings.TrimSpace(c.Query("object_id")),
		Channel:    strings.TrimSpace(c.Query("channel")),
	}
	if filter.Pagination, err = pagination(c); err != nil {
		return h.fail(c, err)
	}
	if verbs := strings.TrimSpace(c.Query("verb")); verbs != "" {
		for _, verb := range strings.Split(verbs, ",") {
			if verb = strings.TrimSpace(verb); verb != "" {
				filter.Verbs = append(filter.Verbs, verb)
			}
		}
	}
	page, err := h.cfg.ActivityFeed.Query(c.Context(), query.ActivityFeedInput{Actor: actor, Filter: filter})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, activityFeedView(page))
}

func (h *Handler) logActivity(c requestContext) error {
	if h.cfg.LogActivity == nil {
		return h.unavailable(c, "activity.log")
	}
	actor, err := h.actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req activityRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	record := types.ActivityRecord{}
	err = h.cfg.LogActivity.Execute(c.Context(), command.ActivityLogInput{
		Actor:      actor,
		Verb:       req.Verb,
		ObjectType: req.ObjectType,
		ObjectID:   req.ObjectID,
		Data:       req.Data,
		Result:     &record,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, activityView(record))
}

// actor prefers the actor stored by Authenticate and falls back to resolving
// the Authorization header directly.
func (h *Handler) actor(c requestContext) (types.ActorRef, error) {
	if _, ok := authctx.ActorFromContext(c.Context()); ok {
		return authctx.ResolveActor(c.Context())
	}
	userID, err := h.cfg.Identity.Resolve(c.Context(), c.Header("Authorization"))
	if err != nil {
		return types.ActorRef{}, err
	}
	return types.ActorRef{ID: userID}, nil
}

func (h *Handler) fail(c requestContext, err error) error {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", err)
	} else {
		h.logger.Debug("request rejected", "status", status, "error", err)
	}
	return c.JSON(status, Envelope(err))
}

func (h *Handler) unavailable(c requestContext, operation string) error {
	h.logger.Error("route has no backing handler", nil, "operation", operation)
	return c.JSON(http.StatusInternalServerError, Envelope(nil))
}

func decodeBody(c requestContext, out any) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return types.ValidationError("go-timebank: request body is not valid JSON")
	}
	return nil
}

func pathUUID(c requestContext, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Param(name, ""))
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, types.FieldValidationError(name, "must be a uuid")
	}
	return id, nil
}

func queryUUID(c requestContext, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.FieldValidationError(key, "must be a uuid")
	}
	return id, nil
}

func queryBool(c requestContext, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, types.FieldValidationError(key, "must be a boolean")
	}
	return value, nil
}

func queryInt(c requestContext, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def, types.FieldValidationError(key, "must be an integer")
	}
	return value, nil
}

// pagination reads limit and offset. Zero values are left for the queries to
// default and clamp.
func pagination(c requestContext) (types.Pagination, error) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return types.Pagination{}, err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return types.Pagination{}, err
	}
	return types.Pagination{Limit: limit, Offset: offset}, nil
}
