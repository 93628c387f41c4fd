package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drithme/authcore/password"
	"github.com/drithme/authcore/session"
	"github.com/drithme/authcore/token"
)

// Engine orchestrates the authentication core. Construct it through the
// Builder; the zero value and a partially wired engine return
// ErrEngineNotReady from every flow.
type Engine struct {
	config     Config
	store      UserStore
	email      EmailSender
	bot        BotVerifier
	oauth      OAuthExchanger
	hasher     *password.Hasher
	tokens     *token.Manager
	sessions   *session.Codec
	totp       *totpManager
	breach     *BreachScreen
	challenges challengeStore
	policy     PasswordPolicy
	metrics    *Metrics
	logger     *slog.Logger
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// Session decodes an assertion token and refreshes it against the account
// store. TwoFactorEnabled and VerifiedAt always reflect current storage,
// and SecondFactorPassed is recomputed as claim-passed OR factor-not-
// required, so toggling two-factor auth or completing verification takes
// effect on the next read without a fresh login.
func (e *Engine) Session(ctx context.Context, assertionToken string) (*SessionAssertion, error) {
	if e == nil || e.sessions == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	decoded, err := e.sessions.Decode(assertionToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return e.refreshAssertion(ctx, decoded)
}

// Authorize is the access gate for protected operations: it refreshes the
// assertion and allows only a fully authenticated session. A session that
// still owes its second factor gets the refreshed assertion back alongside
// ErrSecondFactorRequired so the caller can route to code collection.
func (e *Engine) Authorize(ctx context.Context, assertionToken string) (*SessionAssertion, error) {
	assertion, err := e.Session(ctx, assertionToken)
	if err != nil {
		return nil, err
	}
	if !assertion.SecondFactorPassed {
		return assertion, ErrSecondFactorRequired
	}
	return assertion, nil
}

func (e *Engine) refreshAssertion(ctx context.Context, decoded *SessionAssertion) (*SessionAssertion, error) {
	acct, err := e.store.FindByEmail(ctx, decoded.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	refreshed := &SessionAssertion{
		AccountID:          acct.ID,
		Email:              acct.Email,
		Name:               acct.Name,
		VerifiedAt:         acct.VerifiedAt,
		TwoFactorEnabled:   acct.TwoFactorEnabled,
		SecondFactorPassed: decoded.SecondFactorPassed || !acct.TwoFactorEnabled,
	}
	return refreshed, nil
}

func (e *Engine) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}
