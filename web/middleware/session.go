package middleware

import (
	"net/http"

	"problem-relay/utils"

	"github.com/gin-gonic/gin"
)

// SessionIDKey is the gin context key holding the validated :id parameter.
const SessionIDKey = "sessionID"

// SessionParam validates the :id route parameter before any store access.
func SessionParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !utils.ValidSessionID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
			return
		}
		c.Set(SessionIDKey, id)
		c.Next()
	}
}
