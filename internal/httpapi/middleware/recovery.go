package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/logging"
)

// Recovery converts panics into a JSON 500 instead of a dropped connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				reqID, _ := c.Get(RequestIDKey)
				logging.Errorf("panic recovered request_id=%v path=%s err=%v", reqID, c.Request.URL.Path, r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
