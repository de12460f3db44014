package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"clinidesk.app/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// sessionCookie carries the opaque session token for browser clients.
	sessionCookie = "clinidesk_session"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrUnauthorized):
				writeError(w, r, http.StatusUnauthorized, "session expired or invalid")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken resolves the token from the session cookie, falling back
// to a bearer header for non-browser clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

// ensurePermission gates a handler on the merged permission table.
// Missing principal yields 401, missing grant 403.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, code string, action auth.Action) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !principal.Allows(code, action) {
		writeError(w, r, http.StatusForbidden, "permission denied")
		return false
	}
	return true
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
