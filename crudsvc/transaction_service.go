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

// TransactionServiceConfig wires dependencies for the CRUD-backed transaction
// log browser.
type TransactionServiceConfig struct {
	Guard   GuardAdapter
	History gocommand.Querier[types.HistoryFilter, types.TransactionPage]
	Detail  gocommand.Querier[query.TransactionDetailInput, *types.Transaction]
}

// TransactionService exposes the append-only transaction log through a
// read-only go-crud controller. Access rules are the ones enforced by the
// history and detail queries.
type TransactionService struct {
	guard   GuardAdapter
	history gocommand.Querier[types.HistoryFilter, types.TransactionPage]
	detail  gocommand.Querier[query.TransactionDetailInput, *types.Transaction]
	logger  types.Logger
}

// NewTransactionService constructs the adapter.
func NewTransactionService(cfg TransactionServiceConfig, opts ...ServiceOption) *TransactionService {
	options := applyOptions(opts)
	return &TransactionService{
		guard:   cfg.Guard,
		history: cfg.History,
		detail:  cfg.Detail,
		logger:  options.logger,
	}
}

func (s *TransactionService) Create(crud.Context, *ledger.TransactionRecord) (*ledger.TransactionRecord, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *TransactionService) CreateBatch(crud.Context, []*ledger.TransactionRecord) ([]*ledger.TransactionRecord, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *TransactionService) Update(crud.Context, *ledger.TransactionRecord) (*ledger.TransactionRecord, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *TransactionService) UpdateBatch(crud.Context, []*ledger.TransactionRecord) ([]*ledger.TransactionRecord, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *TransactionService) Delete(crud.Context, *ledger.TransactionRecord) error {
	return notSupported(crud.OpDelete)
}

func (s *TransactionService) DeleteBatch(crud.Context, []*ledger.TransactionRecord) error {
	return notSupported(crud.OpDeleteBatch)
}

// Index lists transactions for token_id or user_id, defaulting to the
// caller's own history.
func (s *TransactionService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*ledger.TransactionRecord, int, error) {
	if s.history == nil {
		return nil, 0, missingDependency("transaction history query")
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
	})
	if err != nil {
		return nil, 0, err
	}
	params := readQuery(ctx)
	filter := types.HistoryFilter{
		Actor:      res.Actor,
		TokenID:    params.UUID("token_id"),
		UserID:     params.UUID("user_id"),
		Pagination: params.Page(),
	}
	if err := params.Err(); err != nil {
		return nil, 0, err
	}
	page, err := s.history.Query(ctx.UserContext(), filter)
	if err != nil {
		return nil, 0, err
	}
	records := make([]*ledger.TransactionRecord, 0, len(page.Transactions))
	for _, txn := range page.Transactions {
		records = append(records, ledger.TransactionRecordFromDomain(txn))
	}
	return records, page.Total, nil
}

func (s *TransactionService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*ledger.TransactionRecord, error) {
	if s.detail == nil {
		return nil, missingDependency("transaction detail query")
	}
	txnID, err := parseID(id, "id")
	if err != nil {
		return nil, err
	}
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpRead,
		TargetID:  txnID,
	})
	if err != nil {
		return nil, err
	}
	txn, err := s.detail.Query(ctx.UserContext(), query.TransactionDetailInput{
		Actor:         res.Actor,
		TransactionID: txnID,
	})
	if err != nil {
		return nil, err
	}
	return ledger.TransactionRecordFromDomain(*txn), nil
}
