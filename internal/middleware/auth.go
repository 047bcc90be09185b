package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SummerNgcobo/parakeet/internal/utils"
)

const (
	ContextUserID = "userId"
	ContextRole   = "role"
	ContextEmail  = "email"
)

func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}

		claims, err := utils.ParseAccessToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if _, err := uuid.Parse(claims.Subject); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		SetIdentity(c, claims)
		c.Next()
	}
}

// SetIdentity stores the token claims on the request context.
func SetIdentity(c *gin.Context, claims *utils.AccessClaims) {
	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextEmail, claims.Email)
}

// UserID returns the authenticated user id. It is only valid behind
// AuthRequired.
func UserID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(c.GetString(ContextUserID))
	return id
}

func Role(c *gin.Context) string {
	return c.GetString(ContextRole)
}

func Email(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func HasRole(c *gin.Context, roles ...string) bool {
	current := Role(c)
	for _, role := range roles {
		if current == role {
			return true
		}
	}
	return false
}

func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if HasRole(c, roles...) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
