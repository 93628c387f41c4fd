package authcore

import (
	"context"
	"errors"
	"fmt"
)

// TOTPProvisioningURI returns the otpauth://totp/ URI for the email's
// deterministic secret, suitable for QR encoding in an authenticator app.
func (e *Engine) TOTPProvisioningURI(email string) (string, error) {
	if e == nil || e.totp == nil {
		return "", ErrEngineNotReady
	}
	return e.totp.ProvisionURI(email), nil
}

// ToggleTwoFactor flips the caller's two-factor opt-in. It sits behind the
// authorization gate: with TOTP currently off the gate passes trivially,
// and with TOTP on the caller must have confirmed a code this session
// before being allowed to turn it off.
func (e *Engine) ToggleTwoFactor(ctx context.Context, assertionToken string) (*Account, error) {
	assertion, err := e.Authorize(ctx, assertionToken)
	if err != nil {
		return nil, err
	}

	enabled := !assertion.TwoFactorEnabled
	acct, err := e.store.Update(ctx, assertion.Email, AccountUpdate{TwoFactorEnabled: &enabled})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrEmailNotRegistered
		}
		return nil, fmt.Errorf("toggle two factor: %w", err)
	}
	return acct, nil
}
