package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const (
	// DefaultSigningMethod is used when the configuration leaves it empty.
	DefaultSigningMethod = "HS256"
	// DefaultTokenTTL applies when the configuration has no token expiration.
	DefaultTokenTTL = 24 * time.Hour

	claimUserID = "user_id"
)

var (
	// ErrSigningKeyRequired indicates the auth configuration has no signing key.
	ErrSigningKeyRequired = errors.New("go-timebank: signing key required")
	// ErrUnsupportedSigningMethod indicates a non HMAC signing method was configured.
	ErrUnsupportedSigningMethod = errors.New("go-timebank: unsupported signing method")
)

// Option customises resolver and signer construction.
type Option func(*options)

type options struct {
	clock  types.Clock
	leeway time.Duration
}

// WithClock overrides the clock used for expiry checks and issued-at stamps.
func WithClock(clock types.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLeeway tolerates small clock drift when checking exp/nbf claims.
func WithLeeway(leeway time.Duration) Option {
	return func(o *options) {
		if leeway > 0 {
			o.leeway = leeway
		}
	}
}

func buildOptions(opts []Option) options {
	resolved := options{clock: types.SystemClock{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}
	return resolved
}

// JWTResolver validates HMAC signed bearer tokens and returns the user id in
// the subject claim.
type JWTResolver struct {
	key      []byte
	method   jwt.SigningMethod
	scheme   string
	issuer   string
	audience []string
	opts     options
}

var _ types.IdentityResolver = (*JWTResolver)(nil)

// NewJWTResolver builds a resolver from the go-auth configuration.
func NewJWTResolver(cfg auth.Config, opts ...Option) (*JWTResolver, error) {
	if cfg == nil || cfg.GetSigningKey() == "" {
		return nil, ErrSigningKeyRequired
	}
	method, err := signingMethod(cfg.GetSigningMethod())
	if err != nil {
		return nil, err
	}
	return &JWTResolver{
		key:      []byte(cfg.GetSigningKey()),
		method:   method,
		scheme:   cfg.GetAuthScheme(),
		issuer:   cfg.GetIssuer(),
		audience: append([]string(nil), cfg.GetAudience()...),
		opts:     buildOptions(opts),
	}, nil
}

// Resolve implements types.IdentityResolver. The credential may carry the
// configured auth scheme prefix, e.g. "Bearer <token>".
func (r *JWTResolver) Resolve(_ context.Context, credential string) (uuid.UUID, error) {
	raw := stripScheme(credential, r.scheme)
	if raw == "" {
		return uuid.Nil, types.AuthenticationError("go-timebank: credential missing", nil)
	}

	token, err := jwt.Parse(raw, r.keyFunc, r.parserOptions()...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, types.AuthenticationError("go-timebank: credential expired", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, types.AuthenticationError("go-timebank: credential malformed", err)
		default:
			return uuid.Nil, types.AuthenticationError("go-timebank: credential invalid", err)
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, types.AuthenticationError("go-timebank: credential invalid", nil)
	}
	return userIDFromClaims(claims)
}

func (r *JWTResolver) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return r.key, nil
}

func (r *JWTResolver) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{r.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.opts.clock.Now),
	}
	if r.opts.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(r.opts.leeway))
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if len(r.audience) > 0 {
		opts = append(opts, jwt.WithAudience(r.audience[0]))
	}
	return opts
}

func userIDFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	subject, _ := claims.GetSubject()
	if subject == "" {
		subject, _ = claims[claimUserID].(string)
	}
	if subject == "" {
		return uuid.Nil, types.AuthenticationError("go-timebank: credential missing subject", nil)
	}
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, types.AuthenticationError("go-timebank: credential subject is not a user id", err)
	}
	return id, nil
}

func stripScheme(credential, scheme string) string {
	credential = strings.TrimSpace(credential)
	if scheme == "" {
		scheme = "Bearer"
	}
	if len(credential) > len(scheme) && strings.EqualFold(credential[:len(scheme)], scheme) && credential[len(scheme)] == ' ' {
		credential = strings.TrimSpace(credential[len(scheme)+1:])
	}
	return credential
}

func signingMethod(name string) (jwt.SigningMethod, error) {
	if name == "" {
		name = DefaultSigningMethod
	}
	switch strings.ToUpper(name) {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSigningMethod, name)
	}
}
