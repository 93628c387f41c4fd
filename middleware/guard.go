package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/drithme/authcore"
)

type assertionContextKey struct{}

// AssertionFromContext returns the session assertion injected by a guard.
func AssertionFromContext(ctx context.Context) (*authcore.SessionAssertion, bool) {
	a, ok := ctx.Value(assertionContextKey{}).(*authcore.SessionAssertion)
	return a, ok
}

// Guard requires a fully authenticated session. Sessions that passed the
// password check but still owe a second factor are redirected to
// secondFactorURL; everything else invalid gets a 401.
func Guard(engine *authcore.Engine, secondFactorURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			assertion, err := engine.Authorize(r.Context(), token)
			if err != nil {
				if errors.Is(err, authcore.ErrSecondFactorRequired) && secondFactorURL != "" {
					http.Redirect(w, r, secondFactorURL, http.StatusSeeOther)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), assertionContextKey{}, assertion)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession accepts any valid session assertion, second factor settled
// or not. Handlers serving the second-factor step itself use this.
func RequireSession(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			assertion, err := engine.Session(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), assertionContextKey{}, assertion)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
