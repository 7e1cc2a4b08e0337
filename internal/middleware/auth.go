package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/auth"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// Context keys set by the middleware chain.
const (
	KeyUserID    = "userID"
	KeyUserRole  = "userRole"
	KeyRequestID = "requestID"
)

// AuthMiddleware validates the bearer token and stores the caller's ID and
// role in the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		identity, err := auth.ValidateToken(secret, parts[1])
		if err != nil {
			log.WithError(err).WithField("requestId", c.GetString(KeyRequestID)).Debug("Rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Success ---
		c.Set(KeyUserID, identity.UserID)
		c.Set(KeyUserRole, identity.Role)
		c.Next()
	}
}

// RequireRole only lets callers with one of roles through. It must run after
// AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(KeyUserRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context (AuthMiddleware must run first)"})
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: " + strings.Join(roles, " or ") + " role required"})
	}
}

// ActorFromContext builds the acting user for a service call from the
// values the middleware chain stored on c.
func ActorFromContext(c *gin.Context) models.Actor {
	return models.Actor{
		UserID:    c.GetString(KeyUserID),
		Role:      c.GetString(KeyUserRole),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString(KeyRequestID),
	}
}
