package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/privilege"
)

// RequirePrivileges runs [Guard] and then rejects, with 403, tokens whose mask
// lacks any bit of required.
func RequirePrivileges(engine *goSession.Engine, required privilege.Mask) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := goSession.IdentityFromContext(r.Context())
			if !ok || !identity.Has(required) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
		return guard(check)
	}
}
