package middleware

import (
	"context"
	"net/http"
	"strings"
)

type userIDContextKey struct{}

// UserIDKey stores the caller identity in the request context.
var UserIDKey = userIDContextKey{}

// Identity reads the caller identity from the X-User-ID header, set by the
// gateway in front of this service after it has verified the session. Requests
// without an identity still pass through; handlers that need one reject them.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID != "" {
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext returns the caller identity, empty when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}
