package api

import (
	"github.com/goliatone/go-router"
)

// Register mounts the ledger routes on r. Callers usually pass an "/api"
// group that already runs Authenticate.
func Register[T any](r router.Router[T], h *Handler) {
	r.Post("/tokens", h.IssueToken)
	r.Post("/tokens/transfer", h.TransferTokens)
	r.Get("/tokens", h.Wallet)
	r.Get("/tokens/:id", h.TokenDetail)
	r.Post("/tokens/:id/revoke", h.RevokeToken)
	r.Get("/tokens/:id/history", h.TokenHistory)
	r.Get("/transactions/history", h.UserHistory)
	r.Get("/transactions/:id", h.TransactionDetail)
	r.Get("/activity", h.ActivityFeed)
	r.Post("/activity", h.LogActivity)
}
