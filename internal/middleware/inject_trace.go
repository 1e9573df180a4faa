package middleware

import (
	"github.com/gin-gonic/gin"

	"admin-core/internal/utils"
)

// InjectTrace attaches a fresh trace id to the request context and exposes
// it to clients via the X-Trace-Id header.
func InjectTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := utils.GenerateTraceId()
		c.Set(utils.TraceIdKey.String(), traceId)
		c.Header("X-Trace-Id", traceId)
		c.Next()
	}
}
