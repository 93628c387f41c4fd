package authcore

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotReady is returned when a flow is invoked on an Engine that
	// was not fully constructed through the Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidInput is the class of malformed sign-up identity fields
	// (name length, email shape).
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailAlreadyRegistered is returned by SignUp when the email is taken.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrEmailNotRegistered is returned when no account exists for an email,
	// or when the account has no stored password hash (OAuth-only account).
	ErrEmailNotRegistered = errors.New("email is not registered")
	// ErrEmailAlreadyVerified is returned by ResendVerification once the
	// account has redeemed a verification token.
	ErrEmailAlreadyVerified = errors.New("email already verified")
	// ErrAccountNotFound is the lookup-miss sentinel UserStore
	// implementations must return from FindByEmail and Update.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidPassword is returned by Login on a password hash mismatch.
	ErrInvalidPassword = errors.New("invalid password, try again")
	// ErrPasswordPolicy is the class of all password policy violations. The
	// concrete rule is carried by *PolicyError.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordBreached is returned by SignUp when the breach screen finds
	// the password in a known breach corpus.
	ErrPasswordBreached = errors.New("password too weak, please try another")
	// ErrTokenInvalid is returned when a verification token is malformed or
	// carries a bad signature.
	ErrTokenInvalid = errors.New("invalid verification token")
	// ErrTokenExpired is returned when a verification token is past expiry.
	ErrTokenExpired = errors.New("verification token expired")
	// ErrInvalidTOTPCode is returned when a second-factor code does not match
	// the current or immediately preceding time step.
	ErrInvalidTOTPCode = errors.New("invalid totp code")
	// ErrSecondFactorRequired is returned by Authorize when the session has
	// passed the first factor only; the caller must collect a TOTP code.
	ErrSecondFactorRequired = errors.New("second factor required")
	// ErrSecondFactorChallengeNotFound is returned by ConfirmSecondFactor
	// when the challenge does not exist, has expired, or was already
	// redeemed.
	ErrSecondFactorChallengeNotFound = errors.New("second factor challenge not found")
	// ErrSecondFactorAttemptsExceeded is returned once a challenge has burned
	// its attempt budget. The login must restart from the password step.
	ErrSecondFactorAttemptsExceeded = errors.New("second factor attempts exceeded")
	// ErrNotAuthenticated is returned when no usable session assertion is
	// presented on a protected operation.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrBotCheckFailed is returned by Login when the bot-verification
	// collaborator rejects the request.
	ErrBotCheckFailed = errors.New("bot verification failed")
	// ErrUpstreamUnavailable marks a collaborator network failure. The breach
	// screen degrades past it; the bot check propagates it outside TestMode.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	// ErrVerificationEmailFailed is returned by SignUp when the account was
	// committed but the verification email could not be handed off. The
	// registration itself is not rolled back.
	ErrVerificationEmailFailed = errors.New("verification email delivery failed")
	// ErrStrategyNotConfigured is returned by Authenticate when the requested
	// strategy has no collaborator wired in.
	ErrStrategyNotConfigured = errors.New("auth strategy not configured")
)

// PolicyError reports the first password policy rule a candidate violated.
// It unwraps to ErrPasswordPolicy so callers can class-match with errors.Is
// while still reading the specific rule and message.
type PolicyError struct {
	Rule   PolicyRule
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("password policy violation: %s", e.Reason)
}

func (e *PolicyError) Unwrap() error { return ErrPasswordPolicy }
