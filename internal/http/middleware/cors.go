package middleware

import (
	"net/http"
	"strings"
)

// CORS returns middleware that sets CORS headers for the configured origins.
// With no origins no headers are applied. The special value "*" allows any
// origin without credentials; listed origins are echoed back with
// credentials so the session cookie reaches the API.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			allowAny = true
		default:
			allowed[strings.ToLower(origin)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestOrigin := r.Header.Get("Origin")
			_, listed := allowed[strings.ToLower(requestOrigin)]

			switch {
			case requestOrigin != "" && listed:
				w.Header().Set("Access-Control-Allow-Origin", requestOrigin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				setCommonHeaders(w)
			case allowAny:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				setCommonHeaders(w)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept, X-Request-ID")
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}
