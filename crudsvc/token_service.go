package crudsvc

import (
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-timebank/crudguard"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/query"
)

// TokenServiceConfig wires dependencies for the CRUD-backed token browser.
type TokenServiceConfig struct {
	Guard  GuardAdapter
	Wallet gocommand.Querier[query.WalletInput, types.TokenPage]
	Detail gocommand.Querier[query.TokenDetailInput, *types.TimeToken]
}

// TokenService adapts the wallet and token detail queries to a read-only
// go-crud controller.
type TokenService struct {
	guard  GuardAdapter
	wallet gocommand.Querier[query.WalletInput, types.TokenPage]
	detail gocommand.Querier[query.TokenDetailInput, *types.TimeToken]
	logger types.Logger
}

// NewTokenService constructs the adapter.
func NewTokenService(cfg TokenServiceConfig, opts ...ServiceOption) *TokenService {
	options := applyOptions(opts)
	return &TokenService{
		guard:  cfg.Guard,
		wallet: cfg.Wallet,
		detail: cfg.Detail,
		logger: options.logger,
	}
}

func (s *TokenService) Create(crud.Context, *ledger.TokenRecord) (*ledger.TokenRecord, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *TokenService) CreateBatch(crud.Context, []*ledger.TokenRecord) ([]*ledger.TokenRecord, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *TokenService) Update(crud.Context, *ledger.TokenRecord) (*ledger.TokenRecord, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *TokenService) UpdateBatch(crud.Context, []*ledger.TokenRecord) ([]*ledger.TokenRecord, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *TokenService) Delete(crud.Context, *ledger.TokenRecord) error {
	return notSupported(crud.OpDelete)
}

func (s *TokenService) DeleteBatch(crud.Context, []*ledger.TokenRecord) error {
	return notSupported(crud.OpDeleteBatch)
}

// Index lists a wallet. owner_id defaults to the caller.
func (s *TokenService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*ledger.TokenRecord, int, error) {
	if s.wallet == nil {
		return nil, 0, missingDependency("wallet query")
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		return nil, 0, err
	}
	params := readQuery(ctx)
	input := query.WalletInput{
		Actor:      res.Actor,
		OwnerID:    params.UUID("owner_id"),
		ActiveOnly: params.Bool("active"),
		Pagination: params.Page(),
	}
	if err := params.Err(); err != nil {
		return nil, 0, err
	}
	page, err := s.wallet.Query(ctx.UserContext(), input)
	if err != nil {
		return nil, 0, err
	}
	records := make([]*ledger.TokenRecord, 0, len(page.Tokens))
	for _, token := range page.Tokens {
		records = append(records, ledger.TokenRecordFromDomain(token))
	}
	return records, page.Total, nil
}

func (s *TokenService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*ledger.TokenRecord, error) {
	if s.detail == nil {
		return nil, missingDependency("token detail query")
	}
	tokenID, err := parseID(id, "id")
	if err != nil {
		return nil, err
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpRead,
		TargetID:  tokenID,
	})
	if err != nil {
		return nil, err
	}
	token, err := s.detail.Query(ctx.UserContext(), query.TokenDetailInput{
		Actor:   res.Actor,
		TokenID: tokenID,
	})
	if err != nil {
		return nil, err
	}
	return ledger.TokenRecordFromDomain(*token), nil
}
