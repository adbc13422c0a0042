package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mailseal/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// RequesterID returns the authenticated user id placed in the context by
// the auth middleware, or "" when the request was not authenticated.
func RequesterID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// withAuth validates the Bearer token and stores the requester id in the
// request context. Every endpoint of this API requires identity; there is
// no anonymous access to attachments.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeJSONError(w, http.StatusUnauthorized, CodeInvalidToken, "missing token")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			s.writeJSONError(w, http.StatusUnauthorized, CodeInvalidToken, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// withRecovery turns a handler panic into a generic 500. The panic value is
// logged server-side only.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error(r.Context(), "handler panic", "path", r.URL.Path, "panic", rec)
				s.writeJSONError(w, http.StatusInternalServerError, CodeInternal, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
