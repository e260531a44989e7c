package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	auth "github.com/goliatone/go-auth"
	gconfig "github.com/goliatone/go-config/config"
	persistence "github.com/goliatone/go-persistence-bun"
)

// Config holds every setting the timebank binary needs. It is constructed
// once and handed to the identity resolver and the ledger store.
type Config struct {
	Server      ServerConfig      `json:"server" koanf:"server" mapstructure:"server"`
	Auth        AuthConfig        `json:"auth" koanf:"auth" mapstructure:"auth"`
	Persistence PersistenceConfig `json:"persistence" koanf:"persistence" mapstructure:"persistence"`
	Ledger      LedgerConfig      `json:"ledger" koanf:"ledger" mapstructure:"ledger"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `json:"host" koanf:"host" mapstructure:"host" env:"SERVER_HOST" default:"localhost"`
	Port string `json:"port" koanf:"port" mapstructure:"port" env:"SERVER_PORT" default:"8080"`
}

// Address returns host:port.
func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// AuthConfig implements auth.Config interface
type AuthConfig struct {
	SigningKey            string   `json:"signing_key" koanf:"signing_key" mapstructure:"signing_key" env:"AUTH_SIGNING_KEY"`
	SigningMethod         string   `json:"signing_method" koanf:"signing_method" mapstructure:"signing_method" default:"HS256"`
	ContextKey            string   `json:"context_key" koanf:"context_key" mapstructure:"context_key" default:"user"`
	TokenExpiration       int      `json:"token_expiration" koanf:"token_expiration" mapstructure:"token_expiration" default:"86400"`
	ExtendedTokenDuration int      `json:"extended_token_duration" koanf:"extended_token_duration" mapstructure:"extended_token_duration" default:"604800"`
	TokenLookup           string   `json:"token_lookup" koanf:"token_lookup" mapstructure:"token_lookup" default:"header:Authorization"`
	AuthScheme            string   `json:"auth_scheme" koanf:"auth_scheme" mapstructure:"auth_scheme" default:"Bearer"`
	Issuer                string   `json:"issuer" koanf:"issuer" mapstructure:"issuer" default:"go-timebank"`
	Audience              []string `json:"audience" koanf:"audience" mapstructure:"audience"`
	RejectedRouteKey      string   `json:"rejected_route_key" koanf:"rejected_route_key" mapstructure:"rejected_route_key" default:"rejected_route"`
	RejectedRouteDefault  string   `json:"rejected_route_default" koanf:"rejected_route_default" mapstructure:"rejected_route_default" default:"/"`
}

func (c AuthConfig) GetSigningKey() string           { return c.SigningKey }
func (c AuthConfig) GetSigningMethod() string        { return c.SigningMethod }
func (c AuthConfig) GetContextKey() string           { return c.ContextKey }
func (c AuthConfig) GetTokenExpiration() int         { return c.TokenExpiration }
func (c AuthConfig) GetExtendedTokenDuration() int   { return c.ExtendedTokenDuration }
func (c AuthConfig) GetTokenLookup() string          { return c.TokenLookup }
func (c AuthConfig) GetAuthScheme() string           { return c.AuthScheme }
func (c AuthConfig) GetIssuer() string               { return c.Issuer }
func (c AuthConfig) GetAudience() []string           { return c.Audience }
func (c AuthConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c AuthConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }

// PersistenceConfig implements persistence.Config interface
type PersistenceConfig struct {
	Debug          bool          `json:"debug" koanf:"debug" mapstructure:"debug" env:"DB_DEBUG"`
	Driver         string        `json:"driver" koanf:"driver" mapstructure:"driver" env:"DB_DRIVER" default:"sqlite"`
	Server         string        `json:"server" koanf:"server" mapstructure:"server" env:"DB_DSN"`
	PingTimeout    time.Duration `json:"ping_timeout" koanf:"ping_timeout" mapstructure:"ping_timeout" default:"5s"`
	OtelIdentifier string        `json:"otel_identifier" koanf:"otel_identifier" mapstructure:"otel_identifier" default:"go-timebank"`
}

func (c PersistenceConfig) GetDebug() bool                { return c.Debug }
func (c PersistenceConfig) GetDriver() string             { return c.Driver }
func (c PersistenceConfig) GetServer() string             { return c.Server }
func (c PersistenceConfig) GetPingTimeout() time.Duration { return c.PingTimeout }
func (c PersistenceConfig) GetOtelIdentifier() string     { return c.OtelIdentifier }

// LedgerConfig bounds ledger commands and the transfer unit of work.
type LedgerConfig struct {
	MaxDenomination      int           `json:"max_denomination" koanf:"max_denomination" mapstructure:"max_denomination" default:"1440"`
	MaxTokensPerTransfer int           `json:"max_tokens_per_transfer" koanf:"max_tokens_per_transfer" mapstructure:"max_tokens_per_transfer" default:"100"`
	LockTimeout          time.Duration `json:"lock_timeout" koanf:"lock_timeout" mapstructure:"lock_timeout" default:"5s"`
	ExpiryBatchSize      int           `json:"expiry_batch_size" koanf:"expiry_batch_size" mapstructure:"expiry_batch_size" default:"500"`
	TransactionCacheTTL  time.Duration `json:"transaction_cache_ttl" koanf:"transaction_cache_ttl" mapstructure:"transaction_cache_ttl" default:"10m"`
}

var (
	_ auth.Config        = AuthConfig{}
	_ persistence.Config = PersistenceConfig{}
)

// Defaults returns the baseline configuration. The signing key is left empty
// and must be supplied by the environment or a config file.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Auth: AuthConfig{
			SigningMethod:         "HS256",
			ContextKey:            "user",
			TokenExpiration:       86400,
			ExtendedTokenDuration: 604800,
			TokenLookup:           "header:Authorization",
			AuthScheme:            "Bearer",
			Issuer:                "go-timebank",
			RejectedRouteKey:      "rejected_route",
			RejectedRouteDefault:  "/",
		},
		Persistence: PersistenceConfig{
			Driver:         "sqlite",
			Server:         "file:timebank.db?cache=shared&_foreign_keys=on",
			PingTimeout:    5 * time.Second,
			OtelIdentifier: "go-timebank",
		},
		Ledger: LedgerConfig{
			MaxDenomination:      1440,
			MaxTokensPerTransfer: 100,
			LockTimeout:          5 * time.Second,
			ExpiryBatchSize:      500,
			TransactionCacheTTL:  10 * time.Minute,
		},
	}
}

// NewContainer wraps the configuration in a go-config container seeded with
// defaults. Callers attach a logger and call Load.
func NewContainer(defaults Config) *gconfig.Container[*Config] {
	cfg := defaults
	return gconfig.New(&cfg)
}

// GetAuth returns the auth settings as go-auth configuration.
func (c *Config) GetAuth() auth.Config {
	return c.Auth
}

// GetPersistence returns the database settings as go-persistence-bun configuration.
func (c *Config) GetPersistence() persistence.Config {
	return c.Persistence
}

// Validate implements config.Validable interface
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		errs = append(errs, errors.New("auth.signing_key is required"))
	}
	switch strings.ToLower(c.Persistence.Driver) {
	case "sqlite", "sqlite3", "postgres", "pg", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("persistence.driver %q is not supported", c.Persistence.Driver))
	}
	if c.Ledger.MaxDenomination <= 0 {
		errs = append(errs, errors.New("ledger.max_denomination must be positive"))
	}
	if c.Ledger.MaxTokensPerTransfer <= 0 {
		errs = append(errs, errors.New("ledger.max_tokens_per_transfer must be positive"))
	}
	if c.Ledger.LockTimeout <= 0 {
		errs = append(errs, errors.New("ledger.lock_timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
