// Package session encodes and decodes the signed, stateless session
// assertions the engine hands out after each authentication step. Tokens
// carry identity and the second-factor flag only; account flags that can
// change (two-factor opt-in, verification state) are re-read from storage
// by the engine on every refresh rather than trusted from the claim.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid marks a malformed assertion or a bad signature.
	ErrInvalid = errors.New("invalid session assertion")
	// ErrExpired marks an assertion past its expiry.
	ErrExpired = errors.New("session assertion expired")
)

// Assertion is the per-request authentication claim. VerifiedAt and
// TwoFactorEnabled are populated from storage during refresh and are zero
// right after Decode.
type Assertion struct {
	AccountID          string
	Email              string
	Name               string
	VerifiedAt         *time.Time
	TwoFactorEnabled   bool
	SecondFactorPassed bool
}

type assertionClaims struct {
	Email              string `json:"email"`
	Name               string `json:"name"`
	SecondFactorPassed bool   `json:"sfp"`
	jwt.RegisteredClaims
}

// Codec signs and verifies assertions with a process-wide HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewCodec builds a codec. The secret is required; ttl must be positive.
func NewCodec(secret []byte, ttl time.Duration, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("session: secret required")
	}
	if ttl <= 0 {
		return nil, errors.New("session: ttl must be positive")
	}
	return &Codec{secret: secret, ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// Encode seals the assertion into a compact signed token.
func (c *Codec) Encode(a *Assertion) (string, error) {
	if c == nil {
		return "", ErrInvalid
	}
	now := c.now()
	claims := assertionClaims{
		Email:              a.Email,
		Name:               a.Name,
		SecondFactorPassed: a.SecondFactorPassed,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.AccountID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies the token and returns the identity claim it carries.
// Storage-derived fields are left zero for the caller to refresh.
func (c *Codec) Decode(token string) (*Assertion, error) {
	if c == nil {
		return nil, ErrInvalid
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &assertionClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*assertionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return &Assertion{
		AccountID:          claims.Subject,
		Email:              claims.Email,
		Name:               claims.Name,
		SecondFactorPassed: claims.SecondFactorPassed,
	}, nil
}
