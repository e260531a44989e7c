package api

import (
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/service"
)

// NewServiceHandler binds every route to the facades exposed by svc.
func NewServiceHandler(svc *service.Service, logger types.Logger) (*Handler, error) {
	if svc == nil {
		return nil, types.ErrServiceNotReady
	}
	if logger == nil {
		logger = svc.Logger()
	}
	commands := svc.Commands()
	queries := svc.Queries()
	return NewHandler(HandlerConfig{
		IssueToken:         commands.IssueToken,
		TransferTokens:     commands.TransferTokens,
		RevokeToken:        commands.RevokeToken,
		LogActivity:        commands.LogActivity,
		TokenDetail:        queries.TokenDetail,
		Wallet:             queries.Wallet,
		TransactionHistory: queries.TransactionHistory,
		TransactionDetail:  queries.TransactionDetail,
		ActivityFeed:       queries.ActivityFeed,
		Identity:           svc.IdentityResolver(),
		Logger:             logger,
	})
}
