package middleware

import (
	"errors"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// TokenHeader carries the opaque token on every authenticated route.
const TokenHeader = "token"

// Guard validates the request's token and stores the resulting identity in
// the request context. Requests without a valid token get 401; a failing
// backend gets 503.
func Guard(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := TokenFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.ValidateToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, goSession.ErrBackendUnavailable) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goSession.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest reads the token header, falling back to an
// Authorization bearer token.
func TokenFromRequest(r *http.Request) (string, bool) {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token, true
	}
	return bearerToken(r.Header.Get("Authorization"))
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
