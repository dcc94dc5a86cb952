package auth

import (
	"net/http"
	"strings"

	"github.com/miragelabs/mirage/internal/log"
)

// Middleware returns HTTP middleware that authenticates requests with
// verifier and stores the resulting identity in the request context.
// Requests without a bearer token or with a failing one are rejected with
// 401 before reaching the MCP handler.
func Middleware(verifier TokenVerifier, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				logger.Warn("request rejected: missing bearer token",
					"remote", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Warn("request rejected: token verification failed",
					"remote", r.RemoteAddr, "error", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}
