package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shoplite/shoplite-golang/internal/auth"
	"github.com/shoplite/shoplite-golang/internal/database"
)

// AuthMiddleware validates the Bearer token and stores the authenticated
// user ID on the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// AdminMiddleware gates a route group behind the users.is_admin flag. Must
// run after AuthMiddleware.
func AdminMiddleware(pool *database.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDRaw, _ := c.Get("userID")
		userID := userIDRaw.(int64)

		conn, err := pool.Conn(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Database connection failed"})
			c.Abort()
			return
		}
		defer pool.Release(conn)

		var isAdmin bool
		err = conn.QueryRowContext(c.Request.Context(),
			"SELECT is_admin FROM users WHERE id = ?", userID).Scan(&isAdmin)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"message": "User not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to verify permissions"})
			}
			c.Abort()
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
