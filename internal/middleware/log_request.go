package middleware

import (
	"github.com/gin-gonic/gin"

	"admin-core/internal/utils"
)

// LogRequest logs every incoming request with its trace id.
func LogRequest() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		message := "Request received: " + ctx.Request.Method + " " + ctx.Request.URL.Path
		utils.LogMessageWithFields(ctx, "info", message)
		ctx.Next()
	}
}
