package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"opsboard.io/internal/auth"
	"opsboard.io/internal/obs"
)

const authHeader = "Authorization"

// Authenticator verifies a bearer credential without consulting storage.
type Authenticator interface {
	Authenticate(raw string) (auth.Identity, error)
}

// RequireAuth runs next only for requests carrying a valid bearer token and
// places the caller's identity in the request context. Every rejection is a
// 401 with one of two fixed messages.
func RequireAuth(authn Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(authHeader)
		if strings.TrimSpace(raw) == "" {
			reject(w, r, "missing", `Bearer`, msgMissingAuth)
			return
		}
		id, err := authn.Authenticate(raw)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredential) && !errors.Is(err, auth.ErrMissingCredential) {
				obs.Warn("authenticate failed", map[string]any{
					"request_id": RequestIDFromContext(r.Context()),
					"error":      err.Error(),
				})
			}
			reject(w, r, "invalid", `Bearer error="invalid_token"`, msgInvalidToken)
			return
		}
		noteUser(r.Context(), id.SubjectID)
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

func reject(w http.ResponseWriter, r *http.Request, reason, challenge, msg string) {
	obs.RecordAuthRejection("http", reason)
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, r, http.StatusUnauthorized, msg)
}
