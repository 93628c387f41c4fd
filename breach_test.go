package authcore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sha1Hex(password string) string {
	sum := sha1.Sum([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func TestBreachCheckMatch(t *testing.T) {
	const password = "password123"
	digest := sha1Hex(password)
	prefix, suffix := digest[:5], digest[5:]

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n%s:4922\r\nFFFFF45C4D1DEF81644B54AB7F969B88D65:1\r\n", suffix)
	}))
	defer srv.Close()

	screen := NewBreachScreen(srv.URL+"/range/", srv.Client())
	count, err := screen.Check(context.Background(), password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4922 {
		t.Fatalf("expected count 4922, got %d", count)
	}
	if gotPath != "/range/"+prefix {
		t.Fatalf("expected request for prefix %s, got path %s", prefix, gotPath)
	}
}

func TestBreachCheckSuffixCaseInsensitive(t *testing.T) {
	const password = "hunter2"
	suffix := strings.ToLower(sha1Hex(password)[5:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:17\r\n", suffix)
	}))
	defer srv.Close()

	screen := NewBreachScreen(srv.URL+"/range/", srv.Client())
	count, err := screen.Check(context.Background(), password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 17 {
		t.Fatalf("expected count 17, got %d", count)
	}
}

func TestBreachCheckNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
	}))
	defer srv.Close()

	screen := NewBreachScreen(srv.URL+"/range/", srv.Client())
	count, err := screen.Check(context.Background(), "completely-novel-password-1!A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected count 0, got %d", count)
	}
}

func TestBreachCheckUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	screen := NewBreachScreen(srv.URL+"/range/", srv.Client())
	count, err := screen.Check(context.Background(), "whatever")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if count != 0 {
		t.Fatalf("degraded check must report 0, got %d", count)
	}
}

func TestBreachCheckUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	screen := NewBreachScreen(srv.URL+"/range/", nil)
	count, err := screen.Check(context.Background(), "whatever")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if count != 0 {
		t.Fatalf("degraded check must report 0, got %d", count)
	}
}

func TestBreachCheckNilScreen(t *testing.T) {
	var screen *BreachScreen
	count, err := screen.Check(context.Background(), "whatever")
	if err != nil || count != 0 {
		t.Fatalf("nil screen must be a no-op, got (%d, %v)", count, err)
	}
}
