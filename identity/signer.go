package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-auth"
	"github.com/google/uuid"
)

// Signer issues bearer credentials accepted by JWTResolver. It exists for
// development tooling and tests; production credentials come from the
// identity provider.
type Signer struct {
	key      []byte
	method   jwt.SigningMethod
	issuer   string
	audience []string
	ttl      time.Duration
	opts     options
}

// NewSigner builds a signer sharing the resolver configuration.
func NewSigner(cfg auth.Config, opts ...Option) (*Signer, error) {
	if cfg == nil || cfg.GetSigningKey() == "" {
		return nil, ErrSigningKeyRequired
	}
	method, err := signingMethod(cfg.GetSigningMethod())
	if err != nil {
		return nil, err
	}
	ttl := DefaultTokenTTL
	if seconds := cfg.GetTokenExpiration(); seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	return &Signer{
		key:      []byte(cfg.GetSigningKey()),
		method:   method,
		issuer:   cfg.GetIssuer(),
		audience: append([]string(nil), cfg.GetAudience()...),
		ttl:      ttl,
		opts:     buildOptions(opts),
	}, nil
}

// Sign returns a credential for userID valid for the configured TTL.
func (s *Signer) Sign(userID uuid.UUID) (string, error) {
	return s.SignWithTTL(userID, s.ttl)
}

// SignWithTTL returns a credential for userID valid for ttl.
func (s *Signer) SignWithTTL(userID uuid.UUID, ttl time.Duration) (string, error) {
	issuedAt := s.opts.clock.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": issuedAt.Unix(),
		"exp": issuedAt.Add(ttl).Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if len(s.audience) > 0 {
		claims["aud"] = s.audience
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.key)
}
