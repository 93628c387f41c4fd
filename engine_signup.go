package authcore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/drithme/authcore/token"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignUp registers a new account: identity validation, password policy,
// breach screen, hash, create, then verification token issue and email
// hand-off, in that order. The store commit is the point of no return: an
// email delivery failure afterwards returns the created account together
// with ErrVerificationEmailFailed instead of rolling back.
func (e *Engine) SignUp(ctx context.Context, in SignUpInput) (*Account, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if err := validateIdentity(in.Name, in.Email); err != nil {
		return nil, err
	}
	if err := e.policy.Validate(in.Password, in.ConfirmPassword, in.Name, in.Email); err != nil {
		e.metricInc(MetricSignUpPolicyRejected)
		return nil, err
	}

	if _, err := e.store.FindByEmail(ctx, in.Email); err == nil {
		e.metricInc(MetricSignUpDuplicate)
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	if e.breach != nil {
		count, err := e.breach.Check(ctx, in.Password)
		if err != nil {
			// Fail open: a broken breach upstream must not block sign-up.
			e.metricInc(MetricBreachUnavailable)
			e.log().Warn("breach screen unavailable, failing open", "error", err)
			count = 0
		}
		if count > 0 {
			e.metricInc(MetricBreachRejected)
			return nil, ErrPasswordBreached
		}
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct, err := e.store.Create(ctx, CreateAccount{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyRegistered) {
			// Lost the race to a concurrent registration; the store's
			// uniqueness constraint is the authority, not the earlier check.
			e.metricInc(MetricSignUpDuplicate)
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	e.metricInc(MetricSignUpSuccess)

	if err := e.sendVerification(ctx, acct); err != nil {
		e.log().Error("verification email hand-off failed", "email", acct.Email, "error", err)
		return acct, fmt.Errorf("%w: %v", ErrVerificationEmailFailed, err)
	}
	return acct, nil
}

// ResendVerification mints a fresh token for an unverified account and
// hands it to the email collaborator again.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil || e.store == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	acct, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrEmailNotRegistered
		}
		return fmt.Errorf("account lookup: %w", err)
	}
	if acct.VerifiedAt != nil {
		return ErrEmailAlreadyVerified
	}

	if err := e.sendVerification(ctx, acct); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationEmailFailed, err)
	}
	return nil
}

// VerifyEmail redeems a verification token and marks the account verified.
// Redemption is idempotent: the store only writes VerifiedAt while it is
// still unset, so replaying a token re-asserts the same fact harmlessly.
func (e *Engine) VerifyEmail(ctx context.Context, verificationToken string) (*Account, error) {
	if e == nil || e.store == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Redeem(verificationToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	now := time.Now()
	acct, err := e.store.Update(ctx, claims.Email, AccountUpdate{VerifiedAt: &now})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrEmailNotRegistered
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	e.metricInc(MetricVerificationRedeemed)
	return acct, nil
}

func (e *Engine) sendVerification(ctx context.Context, acct *Account) error {
	tok, err := e.tokens.Issue(acct.ID, acct.Email)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	e.metricInc(MetricVerificationIssued)

	if e.email == nil {
		return nil
	}
	url := e.config.VerifyURL + "?token=" + tok
	return e.email.SendVerificationEmail(ctx, acct.Email, acct.Name, url)
}

func mapTokenError(err error) error {
	if errors.Is(err, token.ErrExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

func validateIdentity(name, email string) error {
	if len(name) < 2 {
		return fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidInput)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: name must be less than 255 characters", ErrInvalidInput)
	}
	if len(email) < 2 || len(email) > 255 || !emailShape.MatchString(email) {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return nil
}
