package authcore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	breachPrefixLength    = 5
	defaultBreachEndpoint = "https://api.pwnedpasswords.com/range/"
	defaultBreachTimeout  = 5 * time.Second
)

// BreachScreen checks candidate passwords against a k-anonymity breach
// range endpoint. Only the first five hex characters of the SHA-1 digest
// ever leave the process; the remaining 35 are matched locally against the
// newline-delimited SUFFIX:COUNT response.
type BreachScreen struct {
	endpoint string
	client   *http.Client
}

// NewBreachScreen creates a screen against the given range endpoint. An
// empty endpoint selects the public pwnedpasswords API; a nil client gets a
// default with a short timeout.
func NewBreachScreen(endpoint string, client *http.Client) *BreachScreen {
	if endpoint == "" {
		endpoint = defaultBreachEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: defaultBreachTimeout}
	}
	return &BreachScreen{endpoint: endpoint, client: client}
}

// Check returns how many times the password appears in the breach corpus.
// Any transport or decoding failure yields (0, err) so callers can log the
// degrade and continue: a broken upstream must never block registration.
func (s *BreachScreen) Check(ctx context.Context, password string) (int, error) {
	if s == nil {
		return 0, nil
	}

	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix := digest[:breachPrefixLength]
	suffix := digest[breachPrefixLength:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+prefix, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: breach range request: %v", ErrUpstreamUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: breach range query: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: breach range status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: breach range read: %v", ErrUpstreamUnavailable, err)
	}

	for _, line := range strings.Split(string(body), "\n") {
		candidate, count, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(candidate, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return 0, nil
		}
		return n, nil
	}
	return 0, nil
}
