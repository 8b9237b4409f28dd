package middleware

import (
	"net/http"
	"strings"

	"tripdesk/pkg/auth"
	"tripdesk/pkg/logger"
)

// Authenticate resolves the caller session from a Bearer token and
// stores it in the request context. Requests without a token pass
// through unauthenticated: role checks belong to the domain services,
// which receive the session explicitly. A present-but-invalid token is
// rejected here.
func Authenticate(verifier *auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				log.Warn("Malformed Authorization header",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
				)
				rejectUnauthorized(w)
				return
			}

			session, err := verifier.Verify(tokenString)
			if err != nil {
				log.Warn("Session token rejected",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				rejectUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
