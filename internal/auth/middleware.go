package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"conti/shared/go/logging"
)

// Middleware attaches the verified caller to the request context. Requests
// without a valid token continue anonymously; handlers decide whether a
// caller is required.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := TokenFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := v.Verify(raw)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("ignoring invalid session token")
				next.ServeHTTP(w, r)
				return
			}
			ctx := logging.WithUserID(WithCaller(r.Context(), caller), caller.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
