package authcore

import (
	"context"
	"time"

	"github.com/drithme/authcore/session"
)

// Account is the identity record owned by the UserStore. PasswordHash is
// empty for accounts that only ever signed in through an OAuth provider.
// VerifiedAt is set exactly once by verification-token redemption.
type Account struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	VerifiedAt       *time.Time
	TwoFactorEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateAccount is the input for UserStore.Create.
type CreateAccount struct {
	Name         string
	Email        string
	PasswordHash string
}

// AccountUpdate names the mutable account fields; nil pointers leave a
// field untouched. VerifiedAt is only applied when the stored value is
// still nil, which is what makes token redemption idempotent.
type AccountUpdate struct {
	VerifiedAt       *time.Time
	TwoFactorEnabled *bool
}

// UserStore is the account repository the Engine drives. Implementations
// must enforce unique emails atomically: concurrent duplicate Creates race
// inside the store, not inside the Engine, and exactly one may win.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, in CreateAccount) (*Account, error)
	Update(ctx context.Context, email string, upd AccountUpdate) (*Account, error)
}

// EmailSender delivers the verification email. Failures are surfaced to
// the caller as ErrVerificationEmailFailed but never roll back the account.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, to, name, url string) error
}

// BotVerdict is the outcome of a bot-verification collaborator call.
type BotVerdict struct {
	Success    bool
	ErrorCodes []string
}

// BotVerifier fronts a captcha-style bot-protection service. It is
// consulted on password logins unless Config.TestMode is set.
type BotVerifier interface {
	Verify(ctx context.Context, token string) (BotVerdict, error)
}

// OAuthProfile is the identity an OAuthExchanger resolves from a provider
// authorization code.
type OAuthProfile struct {
	Email string
	Name  string
}

// OAuthExchanger resolves provider authorization codes into profiles. The
// providers themselves are external; the Engine only selects the strategy
// and maps the resulting profile onto a local account.
type OAuthExchanger interface {
	Exchange(ctx context.Context, strategy AuthStrategy, code string) (*OAuthProfile, error)
}

// AuthStrategy is the fixed set of interchangeable credential strategies.
// A request names its strategy; there is no runtime registration.
type AuthStrategy uint8

const (
	// StrategyPassword is the first-factor email+password login.
	StrategyPassword AuthStrategy = iota
	// StrategyTOTP confirms a pending second-factor challenge.
	StrategyTOTP
	// StrategyOAuthGoogle delegates to the Google OAuth collaborator.
	StrategyOAuthGoogle
	// StrategyOAuthGithub delegates to the GitHub OAuth collaborator.
	StrategyOAuthGithub
	// StrategyOAuthTwitter delegates to the Twitter OAuth collaborator.
	StrategyOAuthTwitter
)

func (s AuthStrategy) String() string {
	switch s {
	case StrategyPassword:
		return "password"
	case StrategyTOTP:
		return "totp"
	case StrategyOAuthGoogle:
		return "oauth-google"
	case StrategyOAuthGithub:
		return "oauth-github"
	case StrategyOAuthTwitter:
		return "oauth-twitter"
	default:
		return "unknown"
	}
}

// AuthRequest is the tagged-variant input for Engine.Authenticate. Only
// the fields of the named strategy are read.
type AuthRequest struct {
	Strategy AuthStrategy

	// StrategyPassword
	Email    string
	Password string
	BotToken string

	// StrategyTOTP
	ChallengeID string
	Code        string

	// StrategyOAuth*
	OAuthCode string
}

// SignUpInput is the registration request.
type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginInput is the first-factor login request.
type LoginInput struct {
	Email    string
	Password string
	BotToken string
}

// SessionAssertion is the ephemeral per-request claim the Engine emits and
// re-validates. SecondFactorPassed is true only when the account has not
// opted into TOTP or a valid code was confirmed in this session's lineage.
type SessionAssertion = session.Assertion

// LoginResult is returned by Login, ConfirmSecondFactor, and Authenticate.
// When SecondFactorRequired is set the assertion is first-factor only and
// ChallengeID must be redeemed through ConfirmSecondFactor.
type LoginResult struct {
	Assertion            *SessionAssertion
	AssertionToken       string
	SecondFactorRequired bool
	ChallengeID          string
}

// VerificationClaims is what a redeemed verification token asserts.
type VerificationClaims struct {
	AccountID string
	Email     string
}
