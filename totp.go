package authcore

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type totpManager struct {
	config       TOTPConfig
	serverSecret string
}

func newTOTPManager(cfg TOTPConfig, serverSecret string) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &totpManager{config: cfg, serverSecret: serverSecret}
}

// secretFor derives the per-account secret from the server secret and the
// account email. The derivation is deterministic: the same email always
// yields the same secret, so nothing is persisted and there is no rotation
// path short of changing the email or the server secret.
func (m *totpManager) secretFor(email string) []byte {
	return []byte(m.serverSecret + email)
}

// Code returns the 6-digit code for the current time step.
func (m *totpManager) Code(email string, now time.Time) (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	counter := now.Unix() / int64(m.config.Period)
	return hotpCode(m.secretFor(email), counter, m.config.Digits, m.config.Algorithm)
}

// Verify reports whether code is valid for email at time now. The search
// spans ±Window steps, but a match only counts when its step delta is 0 or
// -1: the current step or the one immediately before it. Matches further
// out are treated as stale even though the search visits them.
func (m *totpManager) Verify(email, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, nil
	}

	secret := m.secretFor(email)
	if len(secret) == 0 {
		return false, errors.New("empty totp secret")
	}

	baseCounter := now.Unix() / int64(m.config.Period)
	for step := -m.config.Window; step <= m.config.Window; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return step == 0 || step == -1, nil
		}
	}

	return false, nil
}

// ProvisionURI renders the otpauth:// URI for QR provisioning. The secret
// is the base32 form of the derived per-email key.
func (m *totpManager) ProvisionURI(email string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + email)

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)

	v := url.Values{}
	v.Set("secret", enc.EncodeToString(m.secretFor(email)))
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func isNumericString(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
