package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/marmos91/botkit/pkg/api/handlers"
)

// SessionCookie carries the access token for browser sessions.
const SessionCookie = "botkit_admin"

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext retrieves the admin claims stored by JWTAuth.
// Returns nil if no claims are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// extractToken prefers the Authorization header and falls back to the
// session cookie.
func extractToken(r *http.Request) (string, bool) {
	if token, ok := extractBearerToken(r); ok {
		return token, true
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// JWTAuth validates the access token and stores the claims in the request
// context. Missing or invalid tokens get a 401 problem response.
func JWTAuth(jwtService *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				handlers.Unauthorized(w, "Authentication required")
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				handlers.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
