package service

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-timebank/command"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/goliatone/go-timebank/query"
)

// Service is the entry point for go-timebank. It wires the token store,
// transaction log, hooks, and command/query facades supplied by the host
// application.
type Service struct {
	cfg          Config
	commands     Commands
	queries      Queries
	txLog        types.TransactionLog
	activityRepo types.ActivityRepository
}

// Commands exposes the service command handlers.
type Commands struct {
	IssueToken     *command.IssueTokenCommand
	TransferTokens *command.TransferTokensCommand
	RevokeToken    *command.RevokeTokenCommand
	ExpireTokens   *command.ExpireTokensCommand
	LogActivity    *command.ActivityLogCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	TokenDetail        *query.TokenDetailQuery
	Wallet             *query.WalletQuery
	TransactionHistory *query.TransactionHistoryQuery
	TransactionDetail  *query.TransactionDetailQuery
	ActivityFeed       *query.ActivityFeedQuery
}

// Config captures all required dependencies so callers can provide their own
// instances (bun-backed ledger, cached readers, hooks, etc.).
type Config struct {
	TokenStore           types.TokenStore
	TransactionLog       types.TransactionLog
	ActivitySink         types.ActivitySink
	ActivityRepository   types.ActivityRepository
	IdentityResolver     types.IdentityResolver
	FeatureGate          featuregate.FeatureGate
	Hooks                types.Hooks
	Clock                types.Clock
	IDGenerator          types.IDGenerator
	Logger               types.Logger
	MaxDenomination      int
	MaxTokensPerTransfer int
	ExpiryBatchSize      int
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	txLog := norm.TransactionLog
	if txLog == nil {
		if cast, ok := norm.TokenStore.(types.TransactionLog); ok {
			txLog = cast
		}
	}
	actRepo := norm.ActivityRepository
	if actRepo == nil {
		if sinkRepo, ok := norm.ActivitySink.(types.ActivityRepository); ok {
			actRepo = sinkRepo
		}
	}

	s := &Service{
		cfg:          norm,
		txLog:        txLog,
		activityRepo: actRepo,
	}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.MaxDenomination <= 0 {
		cfg.MaxDenomination = command.DefaultMaxDenomination
	}
	if cfg.MaxTokensPerTransfer <= 0 {
		cfg.MaxTokensPerTransfer = command.DefaultMaxTokensPerTransfer
	}
	if cfg.ExpiryBatchSize <= 0 {
		cfg.ExpiryBatchSize = command.DefaultExpiryBatchSize
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// IdentityResolver returns the resolver transports use to authenticate
// callers before invoking commands.
func (s *Service) IdentityResolver() types.IdentityResolver {
	if s == nil {
		return nil
	}
	return s.cfg.IdentityResolver
}

// Logger returns the configured service logger.
func (s *Service) Logger() types.Logger {
	if s == nil {
		return types.NopLogger{}
	}
	return s.cfg.Logger
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.TokenStore != nil &&
		s.txLog != nil &&
		s.cfg.ActivitySink != nil &&
		s.cfg.IdentityResolver != nil
}

// HealthCheck surfaces missing dependencies so transports fail fast at
// startup instead of on the first request.
func (s *Service) HealthCheck(_ context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	if s.cfg.TokenStore == nil {
		return types.ErrMissingTokenStore
	}
	if s.txLog == nil {
		return types.ErrMissingTransactionLog
	}
	if s.cfg.ActivitySink == nil {
		return types.ErrMissingActivitySink
	}
	if s.cfg.IdentityResolver == nil {
		return types.ErrMissingIdentityResolver
	}
	return nil
}

func (s *Service) buildCommands() Commands {
	return Commands{
		IssueToken: command.NewIssueTokenCommand(command.IssueTokenCommandConfig{
			Store:           s.cfg.TokenStore,
			Clock:           s.cfg.Clock,
			Logger:          s.cfg.Logger,
			Hooks:           s.cfg.Hooks,
			Activity:        s.cfg.ActivitySink,
			FeatureGate:     s.cfg.FeatureGate,
			MaxDenomination: s.cfg.MaxDenomination,
		}),
		TransferTokens: command.NewTransferTokensCommand(command.TransferTokensCommandConfig{
			Store:                s.cfg.TokenStore,
			Logger:               s.cfg.Logger,
			Hooks:                s.cfg.Hooks,
			Activity:             s.cfg.ActivitySink,
			FeatureGate:          s.cfg.FeatureGate,
			MaxTokensPerTransfer: s.cfg.MaxTokensPerTransfer,
		}),
		RevokeToken: command.NewRevokeTokenCommand(command.RevokeTokenCommandConfig{
			Store:    s.cfg.TokenStore,
			Clock:    s.cfg.Clock,
			Logger:   s.cfg.Logger,
			Hooks:    s.cfg.Hooks,
			Activity: s.cfg.ActivitySink,
		}),
		ExpireTokens: command.NewExpireTokensCommand(command.ExpireTokensCommandConfig{
			Store:     s.cfg.TokenStore,
			Clock:     s.cfg.Clock,
			Logger:    s.cfg.Logger,
			Hooks:     s.cfg.Hooks,
			Activity:  s.cfg.ActivitySink,
			BatchSize: s.cfg.ExpiryBatchSize,
		}),
		LogActivity: command.NewActivityLogCommand(command.ActivityLogConfig{
			Sink:  s.cfg.ActivitySink,
			Hooks: s.cfg.Hooks,
			Clock: s.cfg.Clock,
			IDGen: s.cfg.IDGenerator,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		TokenDetail:        query.NewTokenDetailQuery(s.cfg.TokenStore),
		Wallet:             query.NewWalletQuery(s.cfg.TokenStore, s.cfg.Clock),
		TransactionHistory: query.NewTransactionHistoryQuery(s.txLog),
		TransactionDetail:  query.NewTransactionDetailQuery(s.txLog),
		ActivityFeed:       query.NewActivityFeedQuery(s.activityRepo),
	}
}
