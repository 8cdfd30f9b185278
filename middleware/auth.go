package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/models"
	"manuscript-review-api/services"
	"manuscript-review-api/utils"
)

const currentUserKey = "currentUser"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware validates JWT token
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		// Check Bearer prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			if errors.Is(err, services.ErrAuthentication) {
				utils.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			log.Printf("authenticate request: %v", err)
			utils.AbortWithError(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		// Set user info in context
		c.Set(currentUserKey, user)
		c.Set("userID", user.UserID)
		c.Set("email", user.Email)
		c.Set("role", user.Role)

		c.Next()
	}
}

// RequireRole checks if user has specific role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			utils.AbortWithError(c, http.StatusForbidden, "Role not found")
			return
		}

		if !services.HasRole(user, roles...) {
			utils.AbortWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
