// Package token issues and validates the signed, stateless
// email-verification claims. A token is a compact claim
// {accountId, email, expiresAt} sealed with the server secret; validity is
// cryptographic and time-based, never looked up in storage. Tokens are not
// tracked as single-use server-side: redeeming one twice only re-asserts
// the same verification fact.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid marks a malformed token or a bad signature.
	ErrInvalid = errors.New("invalid verification token")
	// ErrExpired marks a token whose claimed expiry has passed.
	ErrExpired = errors.New("verification token expired")
)

// Claims is what a redeemed token asserts.
type Claims struct {
	AccountID string
	Email     string
}

type verificationClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager mints and redeems verification tokens with a process-wide HMAC
// secret and a fixed lifetime.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager builds a manager. A non-positive ttl defaults to one day.
func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue mints a token binding the account id and email.
func (m *Manager) Issue(accountID, email string) (string, error) {
	if m == nil {
		return "", ErrInvalid
	}
	now := m.now()
	claims := verificationClaims{
		ID:    accountID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Redeem verifies signature and expiry and returns the claims. The two
// failure kinds are distinguishable so callers can message appropriately:
// ErrExpired for a stale token, ErrInvalid for everything else.
func (m *Manager) Redeem(token string) (*Claims, error) {
	if m == nil {
		return nil, ErrInvalid
	}
	parsed, err := jwt.ParseWithClaims(token, &verificationClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*verificationClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return &Claims{AccountID: claims.ID, Email: claims.Email}, nil
}
