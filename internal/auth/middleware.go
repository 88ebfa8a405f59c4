package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Middleware returns HTTP middleware that validates bearer tokens. When
// devIdentity is non-nil the literal token "dev" authenticates as it.
func Middleware(tokenSvc *TokenService, devIdentity *Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if token == "dev" && devIdentity != nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), devIdentity)))
				return
			}

			identity, err := tokenSvc.ValidateToken(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireScope rejects authenticated callers lacking scope with 403.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !identity.HasScope(scope) {
				writeAuthError(w, http.StatusForbidden, fmt.Sprintf("missing scope %s", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return strings.TrimSpace(parts[1]), nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
