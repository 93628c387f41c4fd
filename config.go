package authcore

import (
	"errors"
	"time"
)

// Config carries all process-wide settings for the Engine. It is read once
// at Build time and treated as immutable for the process lifetime. The
// server Secret feeds both the verification token service and the TOTP
// secret derivation; it is passed explicitly rather than read from ambient
// state so both stay independently testable.
type Config struct {
	// Secret signs verification tokens and session assertions and seeds
	// TOTP secret derivation. Required.
	Secret string
	// VerifyURL is the base URL embedded in verification emails; the token
	// is appended as a query parameter.
	VerifyURL string
	// TestMode skips the bot-verification collaborator on login.
	TestMode bool

	Password     PasswordConfig
	TOTP         TOTPConfig
	Verification VerificationConfig
	Session      SessionConfig
	Challenge    ChallengeConfig
	Breach       BreachConfig
	Metrics      MetricsConfig
}

// PasswordConfig sets the bcrypt work factor.
type PasswordConfig struct {
	Cost int
}

// TOTPConfig sets the time-based one-time-password parameters. Window is
// how many steps Verify searches in each direction; acceptance is stricter
// than the search (current step or the one before it).
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int // seconds
	Window    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

// VerificationConfig sets the lifetime of email-verification tokens.
type VerificationConfig struct {
	TTL time.Duration
}

// SessionConfig sets the lifetime of session assertions.
type SessionConfig struct {
	TTL time.Duration
}

// ChallengeConfig bounds second-factor challenges: how long a
// password-verified login may wait for its TOTP code, and how many wrong
// codes it may burn before the challenge is destroyed.
type ChallengeConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

// BreachConfig configures the k-anonymity breach screen. Disabled skips the
// screen entirely, e.g. in airgapped deployments.
type BreachConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the stock configuration: bcrypt cost 10, 6-digit
// 30-second SHA-1 TOTP with a 10-step search window, 1-day verification
// tokens, and the public pwnedpasswords range endpoint.
func DefaultConfig() Config {
	return Config{
		Password: PasswordConfig{Cost: 10},
		TOTP: TOTPConfig{
			Issuer:    "authcore",
			Digits:    6,
			Period:    30,
			Window:    10,
			Algorithm: "SHA1",
		},
		Verification: VerificationConfig{TTL: 24 * time.Hour},
		Session:      SessionConfig{TTL: 24 * time.Hour},
		Challenge: ChallengeConfig{
			TTL:         5 * time.Minute,
			MaxAttempts: 5,
		},
		Breach: BreachConfig{
			Enabled: true,
			Timeout: defaultBreachTimeout,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate rejects configurations the Engine cannot run with.
func (c Config) Validate() error {
	if c.Secret == "" {
		return errors.New("config: Secret is required")
	}
	if c.Password.Cost < 4 || c.Password.Cost > 31 {
		return errors.New("config: Password.Cost must be within bcrypt bounds [4,31]")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("config: TOTP.Digits must be in [6,10]")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("config: TOTP.Period must be positive")
	}
	if c.TOTP.Window < 1 {
		return errors.New("config: TOTP.Window must be at least 1")
	}
	switch c.TOTP.Algorithm {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("config: unsupported TOTP.Algorithm")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("config: Verification.TTL must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: Session.TTL must be positive")
	}
	if c.Challenge.TTL <= 0 {
		return errors.New("config: Challenge.TTL must be positive")
	}
	if c.Challenge.MaxAttempts < 1 {
		return errors.New("config: Challenge.MaxAttempts must be at least 1")
	}
	return nil
}
