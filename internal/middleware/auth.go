package middleware

import (
	"context"
	"net/http"

	"github.com/Ftffxu/ephemeral-chatty/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// AuthMiddleware authenticates the signed user_id cookie and places the
// user id in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("user_id")
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := auth.VerifyCookie(cookie.Value)
		if err != nil || userID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id set by AuthMiddleware, or "".
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
