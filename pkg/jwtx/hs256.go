package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single failure outcome for Parse. Signature
// mismatch, malformed payload, wrong algorithm, and expiry all collapse into
// it so callers cannot tell which check rejected the token.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// Config carries the process-wide signing material. It is constructed once
// at startup and injected wherever tokens are issued or parsed; nothing in
// this package reads ambient state.
type Config struct {
	// Secret is the HMAC-SHA256 signing key. Must be non-empty.
	Secret []byte

	// Issuer is stamped into (and required of) every token.
	Issuer string
}

// Validate reports whether the config is usable.
func (c Config) Validate() error {
	if len(c.Secret) == 0 {
		return errors.New("jwtx: signing secret must not be empty")
	}
	return nil
}

// Signer issues HS256-signed session tokens. TTL is the only per-call
// variable; everything else comes from the injected Config.
type Signer struct {
	cfg Config
}

// NewSigner returns a Signer over the given config.
func NewSigner(cfg Config) *Signer {
	return &Signer{cfg: cfg}
}

// Alg returns the JOSE algorithm name.
func (s *Signer) Alg() string { return "HS256" }

// Sign serializes and signs the claims.
func (s *Signer) Sign(claims Claims) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", err
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.cfg.Secret)
}

// Verifier validates a session token and gives you back the claims if it's
// legit.
type Verifier struct {
	cfg Config
}

// NewVerifier returns a Verifier over the given config.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

// Verify parses and validates a token. Any failure is ErrInvalidToken.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)

	tok, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	if v.cfg.Issuer != "" && claims.Issuer != v.cfg.Issuer {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
