package config

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// Resolve merges defaults, loaded configuration and runtime overrides, in
// increasing priority, and validates the result. Zero values in the loaded
// and runtime layers do not override lower layers.
func Resolve(defaults, loaded, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			toLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			toLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			toLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("config: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("config: options merge failed: %w", err)
	}
	return cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}

func toLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}

	server := map[string]any{}
	putString(server, "host", cfg.Server.Host, includeZero)
	putString(server, "port", cfg.Server.Port, includeZero)
	putSection(layer, "server", server)

	authLayer := map[string]any{}
	putString(authLayer, "signing_key", cfg.Auth.SigningKey, includeZero)
	putString(authLayer, "signing_method", cfg.Auth.SigningMethod, includeZero)
	putString(authLayer, "context_key", cfg.Auth.ContextKey, includeZero)
	putInt(authLayer, "token_expiration", cfg.Auth.TokenExpiration, includeZero)
	putInt(authLayer, "extended_token_duration", cfg.Auth.ExtendedTokenDuration, includeZero)
	putString(authLayer, "token_lookup", cfg.Auth.TokenLookup, includeZero)
	putString(authLayer, "auth_scheme", cfg.Auth.AuthScheme, includeZero)
	putString(authLayer, "issuer", cfg.Auth.Issuer, includeZero)
	if includeZero || len(cfg.Auth.Audience) > 0 {
		authLayer["audience"] = append([]string(nil), cfg.Auth.Audience...)
	}
	putString(authLayer, "rejected_route_key", cfg.Auth.RejectedRouteKey, includeZero)
	putString(authLayer, "rejected_route_default", cfg.Auth.RejectedRouteDefault, includeZero)
	putSection(layer, "auth", authLayer)

	db := map[string]any{}
	if includeZero || cfg.Persistence.Debug {
		db["debug"] = cfg.Persistence.Debug
	}
	putString(db, "driver", cfg.Persistence.Driver, includeZero)
	putString(db, "server", cfg.Persistence.Server, includeZero)
	if includeZero || cfg.Persistence.PingTimeout > 0 {
		db["ping_timeout"] = cfg.Persistence.PingTimeout
	}
	putString(db, "otel_identifier", cfg.Persistence.OtelIdentifier, includeZero)
	putSection(layer, "persistence", db)

	ledger := map[string]any{}
	putInt(ledger, "max_denomination", cfg.Ledger.MaxDenomination, includeZero)
	putInt(ledger, "max_tokens_per_transfer", cfg.Ledger.MaxTokensPerTransfer, includeZero)
	if includeZero || cfg.Ledger.LockTimeout > 0 {
		ledger["lock_timeout"] = cfg.Ledger.LockTimeout
	}
	putInt(ledger, "expiry_batch_size", cfg.Ledger.ExpiryBatchSize, includeZero)
	if includeZero || cfg.Ledger.TransactionCacheTTL > 0 {
		ledger["transaction_cache_ttl"] = cfg.Ledger.TransactionCacheTTL
	}
	putSection(layer, "ledger", ledger)

	return layer
}

func putString(dst map[string]any, key, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		dst[key] = value
	}
}

func putInt(dst map[string]any, key string, value int, includeZero bool) {
	if includeZero || value != 0 {
		dst[key] = value
	}
}

func putSection(dst map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		dst[key] = section
	}
}
