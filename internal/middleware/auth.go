package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/ctxkeys"
	"github.com/portalautarca/portal/internal/service"
)

// AuthMiddleware resolves the session token from the auth_token cookie or an
// Authorization: Bearer header and adds the user to the context. Requests
// without a valid session continue anonymously.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.CurrentUser(r.Context(), token)
			if err != nil {
				if !errors.Is(err, apperr.ErrUnauthenticated) {
					slog.ErrorContext(r.Context(), "failed to resolve session", "error", err)
				}
				if fromCookie {
					authService.ClearSessionCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctxkeys.WithUser(r.Context(), user)))
		})
	}
}

func sessionToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), false
	}

	cookie, err := r.Cookie(service.SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Policy protects every path under Prefix. LoginPath, when set, sends
// anonymous browser requests there instead of answering 401.
type Policy struct {
	Prefix    string
	AdminOnly bool
	LoginPath string
}

// DefaultPolicies lets any signed-in user into the backoffice and keeps user
// and parish management for admins.
var DefaultPolicies = []Policy{
	{Prefix: "/backoffice/", LoginPath: "/login"},
	{Prefix: "/api/backoffice/"},
	{Prefix: "/api/admin/", AdminOnly: true},
}

// Guard enforces the first policy whose prefix matches the request path.
// Paths no policy covers are public.
func Guard(policies []Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range policies {
				if !strings.HasPrefix(r.URL.Path, p.Prefix) {
					continue
				}

				user := ctxkeys.User(r.Context())
				if user == nil {
					if p.LoginPath != "" && !wantsJSON(r) {
						http.Redirect(w, r, p.LoginPath, http.StatusFound)
						return
					}
					writeError(w, http.StatusUnauthorized, "Authentication required")
					return
				}

				if p.AdminOnly && !user.IsAdmin() {
					slog.WarnContext(r.Context(), "admin route denied", "user_id", user.ID, "path", r.URL.Path)
					writeError(w, http.StatusForbidden, "Admin access required")
					return
				}
				break
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth protects a single handler outside the guarded prefixes.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, r)
	}
}

// RequireAdmin protects a single handler for admins only.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !ctxkeys.User(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
