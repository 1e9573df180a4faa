package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"admin-core/internal/managers"
	"admin-core/internal/utils"
)

// AuditTrail records every mutating API call into the system_logs table.
// The write is best-effort: a failing audit insert never fails the request.
func AuditTrail(databaseMgr managers.DatabaseMgr) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodGet {
			return
		}

		var userId interface{}
		var username string
		if claims, ok := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims); ok {
			if sub, ok := claims["sub"].(string); ok {
				userId = sub
			}
			username, _ = claims["username"].(string)
		}

		level := "info"
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = "error"
		} else if c.Writer.Status() >= http.StatusBadRequest {
			level = "warning"
		}

		queryString := "INSERT INTO admin_schema.system_logs " +
			"(log_id, user_id, username, level, action, method, path, status_code, ip_address, user_agent, duration, created_at) " +
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)"
		_, err := databaseMgr.GetPool().Exec(c, queryString,
			uuid.New(), userId, username, level,
			c.Request.Method+" "+c.FullPath(),
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			c.ClientIP(), c.Request.UserAgent(),
			time.Since(start).Milliseconds(), time.Now())
		if err != nil {
			utils.LogMessageWithFieldsAndError(c, "warn", "Error writing audit log entry", err)
		}
	}
}
