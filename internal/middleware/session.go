package middleware

import (
	"net/http"
	"strings"

	"threadloom/internal/session"

	"github.com/rs/zerolog"
)

// TokenFromRequest returns the session token from the named cookie or, when
// absent, from an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireSession rejects requests without a valid session and stores the
// user id in the request context.
func RequireSession(manager *session.Manager, cookieName string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				logger.Debug().Str("path", r.URL.Path).Msg("missing session")
				unauthorised(w, "unauthorised: please log in")
				return
			}

			userID, err := manager.Parse(token)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid session")
				unauthorised(w, "unauthorised: session expired, please log in again")
				return
			}

			noteUser(w, userID)
			next.ServeHTTP(w, r.WithContext(session.WithUserID(r.Context(), userID)))
		})
	}
}
