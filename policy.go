package authcore

import (
	"fmt"
	"strings"
	"unicode"
)

// PolicyRule identifies a single password policy rule. Rules are evaluated
// in declaration order and the first violation wins.
type PolicyRule uint8

const (
	// RuleLength bounds the password to [MinLength, MaxLength] bytes.
	RuleLength PolicyRule = iota
	// RuleLowercase requires at least one lowercase letter.
	RuleLowercase
	// RuleUppercase requires at least one uppercase letter.
	RuleUppercase
	// RuleDigit requires at least one decimal digit.
	RuleDigit
	// RuleSymbol requires at least one character from the symbol set.
	RuleSymbol
	// RuleWhitespace forbids whitespace anywhere in the password.
	RuleWhitespace
	// RuleConfirmation requires the confirmation field to equal the password.
	RuleConfirmation
	// RuleContainsName forbids the account name as a substring,
	// case-insensitively.
	RuleContainsName
	// RuleContainsEmail forbids the local part of the email as a substring,
	// case-insensitively.
	RuleContainsEmail
)

// passwordSymbols is the punctuation set satisfying RuleSymbol.
const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// PasswordPolicy validates raw passwords against the structural rules of
// the registration flow. The zero value is unusable; use DefaultPolicy or
// set both bounds.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPolicy returns the stock 8..255 byte policy.
func DefaultPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, MaxLength: 255}
}

// Validate checks password against every rule in fixed order and returns a
// *PolicyError for the first rule violated, or nil when all rules pass.
// It is a pure predicate: no normalization, no trimming.
func (p PasswordPolicy) Validate(password, confirmation, name, email string) error {
	if len(password) < p.MinLength {
		return violation(RuleLength, fmt.Sprintf("password must be at least %d characters", p.MinLength))
	}
	if len(password) > p.MaxLength {
		return violation(RuleLength, fmt.Sprintf("password must be less than %d characters", p.MaxLength))
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return violation(RuleLowercase, "password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return violation(RuleUppercase, "password must contain at least one uppercase letter")
	}
	if !strings.ContainsAny(password, "0123456789") {
		return violation(RuleDigit, "password must contain at least one number")
	}
	if !strings.ContainsAny(password, passwordSymbols) {
		return violation(RuleSymbol, "password must contain at least one special character")
	}
	if strings.ContainsFunc(password, unicode.IsSpace) {
		return violation(RuleWhitespace, "password must not contain spaces")
	}
	if password != confirmation {
		return violation(RuleConfirmation, "passwords do not match")
	}
	lowered := strings.ToLower(password)
	if name != "" && strings.Contains(lowered, strings.ToLower(name)) {
		return violation(RuleContainsName, "password must not contain your name")
	}
	if local := emailLocalPart(email); local != "" && strings.Contains(lowered, strings.ToLower(local)) {
		return violation(RuleContainsEmail, "password must not contain your email")
	}
	return nil
}

func violation(rule PolicyRule, reason string) error {
	return &PolicyError{Rule: rule, Reason: reason}
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
