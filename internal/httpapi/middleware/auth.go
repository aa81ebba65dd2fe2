package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/auth"
	"github.com/restlab/study-backend/internal/common"
)

const (
	UserIDKey = "auth.user_id"
	RoleKey   = "auth.role"
)

// AuthRequired rejects requests without a valid bearer token and stores the
// caller's identity on the gin context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := auth.ParseJWT(token, secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(RoleKey)
		if role != auth.RoleAdmin {
			common.Fail(c, http.StatusForbidden, 40301, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
