package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AuthContextKey is the key for storing AuthContext in request context
	AuthContextKey ContextKey = "authContext"
)

// Middleware extracts the bearer token, loads the user and injects an AuthContext.
//
// If any step fails (missing token, invalid token, unknown or inactive user),
// the request proceeds without auth context. Protected routes add RequireAuth.
func Middleware(authService *AuthService, tokenExtractor *TokenExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		userID, expiresAt, err := tokenExtractor.ExtractUserIDFromHeader(authHeader)
		if err != nil {
			log.Warn().Err(err).Int("auth_header_length", len(authHeader)).Msg("failed to extract user ID from token")
			c.Next()
			return
		}

		user, err := authService.GetUser(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, ErrUserNotFound) {
				log.Warn().Err(err).Str("user_id", userID).Msg("failed to load user for token")
			}
			c.Next()
			return
		}
		if !user.Active {
			log.Warn().Str("user_id", userID).Msg("token presented for inactive user")
			c.Next()
			return
		}

		authCtx := &AuthContext{User: user, TokenExpiresAt: expiresAt}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), AuthContextKey, authCtx))
		c.Next()
	}
}

// GetAuthContext extracts the AuthContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequireAuth rejects requests that carry no valid auth context with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAuthContext(c.Request.Context()) == nil {
			log.Warn().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("authentication required but not provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects non-administrators with 403. It implies RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx := GetAuthContext(c.Request.Context())
		if authCtx == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
			return
		}
		if !authCtx.IsAdmin {
			log.Warn().Str("user_id", authCtx.RecordID).Str("path", c.Request.URL.Path).Msg("administrator access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "administrator access required"})
			return
		}
		c.Next()
	}
}
