package authcore

import (
	"errors"
	"strings"
	"testing"
)

func validateDefault(t *testing.T, password string) error {
	t.Helper()
	return DefaultPolicy().Validate(password, password, "Cartman", "cartman@fat.com")
}

func wantRule(t *testing.T, err error, rule PolicyRule, reason string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a policy violation")
	}
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	var pe *PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PolicyError, got %T", err)
	}
	if pe.Rule != rule {
		t.Fatalf("expected rule %d, got %d (%s)", rule, pe.Rule, pe.Reason)
	}
	if pe.Reason != reason {
		t.Fatalf("expected reason %q, got %q", reason, pe.Reason)
	}
}

func TestValidateAccepts(t *testing.T) {
	for _, password := range []string{
		"HahaKewl12,",
		"Aa1!aaaa",
		"xK9#longer-password-with-plenty",
	} {
		if err := validateDefault(t, password); err != nil {
			t.Fatalf("%q: unexpected violation: %v", password, err)
		}
	}
}

func TestValidateRuleOrder(t *testing.T) {
	// A password violating everything reports the length rule first.
	err := DefaultPolicy().Validate("a", "b", "a", "a@x.com")
	wantRule(t, err, RuleLength, "password must be at least 8 characters")

	// Long enough but all lowercase: lowercase passes, uppercase fires
	// before digit, symbol, and confirmation.
	err = DefaultPolicy().Validate("aaaaaaaa", "different", "", "")
	wantRule(t, err, RuleUppercase, "password must contain at least one uppercase letter")
}

func TestValidateSingleRules(t *testing.T) {
	tests := []struct {
		name     string
		password string
		rule     PolicyRule
		reason   string
	}{
		{"too short", "Aa1!", RuleLength, "password must be at least 8 characters"},
		{"too long", "Aa1!" + strings.Repeat("x", 252), RuleLength, "password must be less than 255 characters"},
		{"no lowercase", "AAAA1!AA", RuleLowercase, "password must contain at least one lowercase letter"},
		{"no uppercase", "aaaa1!aa", RuleUppercase, "password must contain at least one uppercase letter"},
		{"no digit", "Aaaa!aaa", RuleDigit, "password must contain at least one number"},
		{"no symbol", "Aaaa1aaa", RuleSymbol, "password must contain at least one special character"},
		{"embedded space", "Aaaa 1!a", RuleWhitespace, "password must not contain spaces"},
		{"tab", "Aaaa\t1!a", RuleWhitespace, "password must not contain spaces"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateDefault(t, tc.password)
			wantRule(t, err, tc.rule, tc.reason)
		})
	}
}

func TestValidateConfirmationMismatch(t *testing.T) {
	err := DefaultPolicy().Validate("HahaKewl12,", "HahaKewl12.", "", "")
	wantRule(t, err, RuleConfirmation, "passwords do not match")
}

func TestValidateContainsName(t *testing.T) {
	err := DefaultPolicy().Validate("xCartman12,", "xCartman12,", "cartman", "eric@fat.com")
	wantRule(t, err, RuleContainsName, "password must not contain your name")

	// Case-insensitive both ways.
	err = DefaultPolicy().Validate("xCARTMAN12,a", "xCARTMAN12,a", "Cartman", "eric@fat.com")
	wantRule(t, err, RuleContainsName, "password must not contain your name")
}

func TestValidateContainsEmailLocalPart(t *testing.T) {
	err := DefaultPolicy().Validate("xCartman12,", "xCartman12,", "Eric", "cartman@fat.com")
	wantRule(t, err, RuleContainsEmail, "password must not contain your email")

	// Only the local part counts. The domain is fine.
	if err := DefaultPolicy().Validate("xFat.com12,", "xFat.com12,", "Eric", "cartman@fat.com"); err != nil {
		t.Fatalf("domain substring must not trip the rule: %v", err)
	}
}

func TestValidateEmptyNameAndEmailSkipSubstringRules(t *testing.T) {
	if err := DefaultPolicy().Validate("HahaKewl12,", "HahaKewl12,", "", ""); err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
}

func TestValidateNoTrimming(t *testing.T) {
	// Leading/trailing spaces are violations, not trimmed away.
	err := validateDefault(t, " Aaaa1!aa")
	wantRule(t, err, RuleWhitespace, "password must not contain spaces")
}
