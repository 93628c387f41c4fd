package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Login runs the first factor of the session machine. On success the
// returned assertion carries SecondFactorPassed = !TwoFactorEnabled: an
// account without TOTP is fully authenticated immediately, an account with
// TOTP is parked on a challenge that ConfirmSecondFactor must redeem.
func (e *Engine) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.checkBot(ctx, in.BotToken); err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	acct, err := e.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			return nil, ErrEmailNotRegistered
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	if acct.PasswordHash == "" {
		// OAuth-only account: indistinguishable from an unknown email so
		// the response does not leak which provider holds the identity.
		e.metricInc(MetricLoginFailure)
		return nil, ErrEmailNotRegistered
	}
	if !e.hasher.Verify(in.Password, acct.PasswordHash) {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidPassword
	}

	e.metricInc(MetricLoginSuccess)
	return e.issueLoginResult(ctx, acct)
}

// ConfirmSecondFactor redeems a pending challenge with a TOTP code,
// upgrading the session to fully authenticated. The challenge is
// destroyed on success and after MaxAttempts failures.
func (e *Engine) ConfirmSecondFactor(ctx context.Context, challengeID, code string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.sessions == nil || e.totp == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if challengeID == "" {
		return nil, ErrSecondFactorChallengeNotFound
	}

	rec, err := e.challenges.Get(ctx, challengeID)
	if err != nil {
		return nil, mapChallengeError(err)
	}

	acct, err := e.store.FindByEmail(ctx, rec.Email)
	if err != nil {
		_, _ = e.challenges.Delete(ctx, challengeID)
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrEmailNotRegistered
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	ok, err := e.totp.Verify(acct.Email, code, time.Now())
	if err != nil {
		e.metricInc(MetricSecondFactorFailure)
		return nil, fmt.Errorf("%w: totp verification: %v", ErrUpstreamUnavailable, err)
	}
	if !ok {
		return nil, e.failSecondFactorAttempt(ctx, challengeID)
	}

	deleted, err := e.challenges.Delete(ctx, challengeID)
	if err != nil {
		return nil, mapChallengeError(err)
	}
	if !deleted {
		// Someone redeemed this challenge between Get and Delete.
		e.metricInc(MetricSecondFactorFailure)
		return nil, ErrSecondFactorChallengeNotFound
	}

	assertion := &SessionAssertion{
		AccountID:          acct.ID,
		Email:              acct.Email,
		Name:               acct.Name,
		VerifiedAt:         acct.VerifiedAt,
		TwoFactorEnabled:   acct.TwoFactorEnabled,
		SecondFactorPassed: true,
	}
	tok, err := e.sessions.Encode(assertion)
	if err != nil {
		return nil, fmt.Errorf("encode assertion: %w", err)
	}

	e.metricInc(MetricSecondFactorSuccess)
	return &LoginResult{Assertion: assertion, AssertionToken: tok}, nil
}

// Authenticate dispatches on the request's strategy tag. It is the single
// entry point an API gateway drives; the per-strategy methods remain
// available for direct use.
func (e *Engine) Authenticate(ctx context.Context, req AuthRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	switch req.Strategy {
	case StrategyPassword:
		return e.Login(ctx, LoginInput{Email: req.Email, Password: req.Password, BotToken: req.BotToken})
	case StrategyTOTP:
		return e.ConfirmSecondFactor(ctx, req.ChallengeID, req.Code)
	case StrategyOAuthGoogle, StrategyOAuthGithub, StrategyOAuthTwitter:
		return e.loginOAuth(ctx, req.Strategy, req.OAuthCode)
	default:
		return nil, ErrStrategyNotConfigured
	}
}

func (e *Engine) loginOAuth(ctx context.Context, strategy AuthStrategy, code string) (*LoginResult, error) {
	if e.oauth == nil {
		return nil, ErrStrategyNotConfigured
	}
	if e.store == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	profile, err := e.oauth.Exchange(ctx, strategy, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s exchange: %v", ErrUpstreamUnavailable, strategy, err)
	}

	acct, err := e.store.FindByEmail(ctx, profile.Email)
	if errors.Is(err, ErrAccountNotFound) {
		acct, err = e.store.Create(ctx, CreateAccount{Name: profile.Name, Email: profile.Email})
	}
	if err != nil {
		return nil, fmt.Errorf("oauth account: %w", err)
	}

	e.metricInc(MetricLoginSuccess)
	return e.issueLoginResult(ctx, acct)
}

// issueLoginResult emits the post-first-factor assertion and, when the
// account has opted into TOTP, opens the second-factor challenge.
func (e *Engine) issueLoginResult(ctx context.Context, acct *Account) (*LoginResult, error) {
	assertion := &SessionAssertion{
		AccountID:          acct.ID,
		Email:              acct.Email,
		Name:               acct.Name,
		VerifiedAt:         acct.VerifiedAt,
		TwoFactorEnabled:   acct.TwoFactorEnabled,
		SecondFactorPassed: !acct.TwoFactorEnabled,
	}
	tok, err := e.sessions.Encode(assertion)
	if err != nil {
		return nil, fmt.Errorf("encode assertion: %w", err)
	}

	result := &LoginResult{Assertion: assertion, AssertionToken: tok}
	if !acct.TwoFactorEnabled {
		return result, nil
	}

	if e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	challengeID := uuid.NewString()
	rec := &secondFactorChallenge{
		AccountID: acct.ID,
		Email:     acct.Email,
		ExpiresAt: time.Now().Add(e.config.Challenge.TTL).Unix(),
	}
	if err := e.challenges.Save(ctx, challengeID, rec, e.config.Challenge.TTL); err != nil {
		return nil, mapChallengeError(err)
	}

	e.metricInc(MetricSecondFactorRequired)
	result.SecondFactorRequired = true
	result.ChallengeID = challengeID
	return result, nil
}

func (e *Engine) failSecondFactorAttempt(ctx context.Context, challengeID string) error {
	e.metricInc(MetricSecondFactorFailure)
	exceeded, err := e.challenges.RecordFailure(ctx, challengeID, e.config.Challenge.MaxAttempts)
	if err != nil {
		return mapChallengeError(err)
	}
	if exceeded {
		return ErrSecondFactorAttemptsExceeded
	}
	return ErrInvalidTOTPCode
}

func (e *Engine) checkBot(ctx context.Context, botToken string) error {
	if e.bot == nil || e.config.TestMode {
		return nil
	}
	verdict, err := e.bot.Verify(ctx, botToken)
	if err != nil {
		return fmt.Errorf("%w: bot verification: %v", ErrUpstreamUnavailable, err)
	}
	if !verdict.Success {
		if len(verdict.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrBotCheckFailed, verdict.ErrorCodes[0])
		}
		return ErrBotCheckFailed
	}
	return nil
}

func mapChallengeError(err error) error {
	switch {
	case errors.Is(err, errChallengeNotFound), errors.Is(err, errChallengeExpired):
		return ErrSecondFactorChallengeNotFound
	case errors.Is(err, errChallengeExceeded):
		return ErrSecondFactorAttemptsExceeded
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
}
