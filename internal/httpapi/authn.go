package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"restomap.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var protectedPaths = []string{
	"/api/auth/profil",
}

var protectedPrefixes = []string{
	"/api/admin/",
}

// withAuth is the session guard: every request to a protected route must
// carry a valid bearer token resolving to an active user, which is attached
// to the request context without its password hash. Unprotected routes fall
// through to the mux, so unknown paths still answer 404 rather than 401.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || !requiresAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Token d'authentification manquant")
			return
		}

		user, err := a.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthorized):
				writeError(w, r, http.StatusUnauthorized, "Compte désactivé")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "Token invalide")
			default:
				writeError(w, r, http.StatusInternalServerError, "Erreur serveur")
			}
			return
		}

		// The context carries the principal, never the credential material.
		principal := *user
		principal.PasswordHash = ""
		ctx := auth.ContextWithUser(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureAdmin layers the role check on top of the session guard.
func (a *API) ensureAdmin(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Token d'authentification manquant")
		return auth.User{}, false
	}
	if !user.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "Accès refusé. Droits administrateur requis.")
		return auth.User{}, false
	}
	return user, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func requiresAuth(path string) bool {
	for _, p := range protectedPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
