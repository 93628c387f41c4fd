package authcore_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	. "github.com/drithme/authcore"
	"github.com/drithme/authcore/store/memstore"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// captureEmailSender records every verification email instead of sending.
type captureEmailSender struct {
	mu   sync.Mutex
	sent []capturedEmail
	fail error
}

type capturedEmail struct {
	To   string
	Name string
	URL  string
}

func (s *captureEmailSender) SendVerificationEmail(_ context.Context, to, name, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, capturedEmail{To: to, Name: name, URL: url})
	return nil
}

func (s *captureEmailSender) last(t *testing.T) capturedEmail {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no verification email captured")
	}
	return s.sent[len(s.sent)-1]
}

// tokenFromEmail pulls the verification token out of a captured URL.
func tokenFromEmail(t *testing.T, email capturedEmail) string {
	t.Helper()
	u, err := url.Parse(email.URL)
	if err != nil {
		t.Fatalf("parse verification url %q: %v", email.URL, err)
	}
	tok := u.Query().Get("token")
	if tok == "" {
		t.Fatalf("no token in verification url %q", email.URL)
	}
	return tok
}

type stubBotVerifier struct {
	verdict BotVerdict
	err     error
	calls   int
}

func (s *stubBotVerifier) Verify(context.Context, string) (BotVerdict, error) {
	s.calls++
	return s.verdict, s.err
}

type stubOAuthExchanger struct {
	profile *OAuthProfile
	err     error
}

func (s *stubOAuthExchanger) Exchange(context.Context, AuthStrategy, string) (*OAuthProfile, error) {
	return s.profile, s.err
}

// ---------------------------------------------------------------------------
// Engine construction
// ---------------------------------------------------------------------------

type engineFixture struct {
	engine *Engine
	store  *memstore.Store
	emails *captureEmailSender
}

func newFixture(t *testing.T, mutate ...func(*Builder, *Config)) *engineFixture {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Secret = "engine-test-secret"
	cfg.VerifyURL = "https://app.test/verify"
	cfg.TestMode = true
	cfg.Password.Cost = 4 // bcrypt.MinCost keeps the suite fast
	cfg.Breach.Enabled = false

	store := memstore.New()
	emails := &captureEmailSender{}

	builder := New().WithUserStore(store).WithEmailSender(emails)
	for _, m := range mutate {
		m(builder, &cfg)
	}
	builder.WithConfig(cfg)

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return &engineFixture{engine: engine, store: store, emails: emails}
}

func (f *engineFixture) signUp(t *testing.T) *Account {
	t.Helper()
	acct, err := f.engine.SignUp(context.Background(), SignUpInput{
		Name:            "Cartman",
		Email:           "cartman@fat.com",
		Password:        "HahaKewl12,",
		ConfirmPassword: "HahaKewl12,",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return acct
}

func (f *engineFixture) login(t *testing.T) *LoginResult {
	t.Helper()
	res, err := f.engine.Login(context.Background(), LoginInput{
		Email:    "cartman@fat.com",
		Password: "HahaKewl12,",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res
}

// enableTwoFactor flips TOTP on through the public toggle.
func (f *engineFixture) enableTwoFactor(t *testing.T) {
	t.Helper()
	res := f.login(t)
	acct, err := f.engine.ToggleTwoFactor(context.Background(), res.AssertionToken)
	if err != nil {
		t.Fatalf("toggle two factor: %v", err)
	}
	if !acct.TwoFactorEnabled {
		t.Fatal("two factor must be on after toggle")
	}
}

func wantErr(t *testing.T, err, sentinel error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
}
