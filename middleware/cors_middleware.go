package middleware

import (
	"net/http"
	"os"
	"strings"
)

// Local dev frontends allowed when ALLOWED_ORIGINS is not set.
var defaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// AllowedOrigins returns the CORS allowlist: ALLOWED_ORIGINS as a
// comma-separated list, or the local dev defaults.
func AllowedOrigins() []string {
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		return strings.Split(v, ",")
	}
	return defaultAllowedOrigins
}

// CORSMiddleware handles Cross-Origin Resource Sharing for the given
// allowlist. Requests from origins outside the list pass through without
// CORS headers; preflight requests are answered directly.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !originAllowed(origin, allowedOrigins) {
				next.ServeHTTP(w, r)
				return
			}
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
