package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"queryforge/internal/core/apperror"
	appctx "queryforge/internal/core/context"
)

// TokenValidator validates bearer tokens into caller contexts.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.CallerContext, error)
}

// Auth middleware validates bearer tokens and populates the caller context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		// Check Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		caller, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		// Add caller to context
		ctx := appctx.WithCaller(c.Request.Context(), caller)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("subject", caller.Subject)

		c.Next()
	}
}

// RequireScope middleware checks the caller carries a scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := appctx.GetCaller(c.Request.Context())
		if caller == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		if !appctx.HasScope(c.Request.Context(), scope) {
			_ = c.Error(
				apperror.NewUnauthorized("insufficient scope").
					WithDetail("required_scope", scope),
			)
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
