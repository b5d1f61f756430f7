// Package middleware provides HTTP middleware for authentication,
// request logging, and metrics collection.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/platinummonkey/benjamin/pkg/httputil"
	"github.com/platinummonkey/benjamin/pkg/observability"
)

// AuthMiddleware verifies bearer tokens and puts the authenticated username
// on the request context.
type AuthMiddleware struct {
	secret []byte
	logger *observability.Logger
}

// NewAuthMiddleware creates an authentication middleware with an HMAC secret
func NewAuthMiddleware(secret string, logger *observability.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), logger: logger}
}

// Handler wraps an HTTP handler with bearer token authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		username, err := m.validateToken(parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("token validation failed")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := observability.WithUsername(r.Context(), username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken parses and verifies a JWT, returning the username claim
func (m *AuthMiddleware) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}

	if username, ok := claims["preferred_username"].(string); ok && username != "" {
		return username, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}

	return "", fmt.Errorf("token has no username claim")
}

// Username returns the authenticated username from the request context
func Username(r *http.Request) string {
	return observability.GetUsername(r.Context())
}
