package authcore

import (
	"strings"
	"testing"
	"time"
)

const (
	totpTestEmail  = "cartman@fat.com"
	totpTestSecret = "server-secret"
)

func newTestTOTP(t *testing.T) *totpManager {
	t.Helper()
	cfg := DefaultConfig().TOTP
	cfg.Issuer = "authcore-test"
	return newTOTPManager(cfg, totpTestSecret)
}

// codeForOffset generates the code for the step `offset` steps away from now.
func codeForOffset(t *testing.T, m *totpManager, now time.Time, offset int) string {
	t.Helper()
	shifted := now.Add(time.Duration(offset*m.config.Period) * time.Second)
	code, err := m.Code(totpTestEmail, shifted)
	if err != nil {
		t.Fatalf("generate code at offset %d: %v", offset, err)
	}
	return code
}

func TestVerifyCurrentStep(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	ok, err := m.Verify(totpTestEmail, codeForOffset(t, m, now, 0), now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("current-step code must verify")
	}
}

func TestVerifyPreviousStep(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	ok, err := m.Verify(totpTestEmail, codeForOffset(t, m, now, -1), now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("previous-step code must verify")
	}
}

func TestVerifyRejectsStaleAndFutureSteps(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	// Codes inside the search window but outside the acceptance set.
	for _, offset := range []int{-10, -5, -2, 1, 2, 5, 10} {
		ok, err := m.Verify(totpTestEmail, codeForOffset(t, m, now, offset), now)
		if err != nil {
			t.Fatalf("offset %d: %v", offset, err)
		}
		if ok {
			t.Fatalf("offset %d code must not verify", offset)
		}
	}
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef", "12 456"} {
		ok, err := m.Verify(totpTestEmail, code, now)
		if err != nil {
			t.Fatalf("%q: %v", code, err)
		}
		if ok {
			t.Fatalf("%q must not verify", code)
		}
	}
}

func TestVerifyTrimsSurroundingSpace(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	code := "  " + codeForOffset(t, m, now, 0) + "\n"
	ok, err := m.Verify(totpTestEmail, code, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("padded code must verify after trimming")
	}
}

func TestVerifyWrongEmail(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	code := codeForOffset(t, m, now, 0)
	ok, err := m.Verify("kyle@fat.com", code, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("a code derived for one email must not verify for another")
	}
}

func TestCodeDeterministic(t *testing.T) {
	m := newTestTOTP(t)
	now := time.Unix(1_700_000_000, 0)

	a := codeForOffset(t, m, now, 0)
	b := codeForOffset(t, m, now, 0)
	if a != b {
		t.Fatalf("codes for the same step differ: %s vs %s", a, b)
	}
	if len(a) != 6 || !isNumericString(a) {
		t.Fatalf("expected 6 digits, got %q", a)
	}
}

func TestCodeStableWithinStep(t *testing.T) {
	m := newTestTOTP(t)
	start := time.Unix(1_700_000_010, 0) // 10s into a 30s step

	a := codeForOffset(t, m, start, 0)
	b := codeForOffset(t, m, start.Add(15*time.Second), 0)
	if a != b {
		t.Fatalf("codes within one step differ: %s vs %s", a, b)
	}
}

func TestProvisionURI(t *testing.T) {
	m := newTestTOTP(t)
	uri := m.ProvisionURI(totpTestEmail)

	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected scheme: %s", uri)
	}
	for _, want := range []string{
		"issuer=authcore-test",
		"digits=6",
		"period=30",
		"algorithm=SHA1",
		"secret=",
	} {
		if !strings.Contains(uri, want) {
			t.Fatalf("uri missing %q: %s", want, uri)
		}
	}
	// The derived secret never appears raw.
	if strings.Contains(uri, totpTestSecret) {
		t.Fatalf("raw server secret leaked into uri: %s", uri)
	}
}

func TestVerifyUnsupportedAlgorithm(t *testing.T) {
	cfg := DefaultConfig().TOTP
	cfg.Algorithm = "MD5"
	m := newTOTPManager(cfg, totpTestSecret)

	if _, err := m.Verify(totpTestEmail, "123456", time.Now()); err == nil {
		t.Fatal("expected an error for an unsupported algorithm")
	}
}
