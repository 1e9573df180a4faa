package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"

	"admin-core/internal/managers"
	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// Capability flags a route may require on top of a valid access token.
// The capability check runs after identity resolution: a vanished or
// deactivated account maps to 401, a present account lacking the
// capability maps to 403.
const (
	CapabilityActive    = "active"
	CapabilityVerified  = "verified"
	CapabilitySuperuser = "superuser"
)

var errCapabilityMissing = errors.New("capability missing")

// RequireCapability resolves the authenticated user and enforces the given
// capability. It must run behind the JWT middleware.
func RequireCapability(databaseMgr managers.DatabaseMgr, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
		if !ok {
			utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, errors.New("missing claims"))
			return
		}
		userId, _ := claims["sub"].(string)

		var isActive, isVerified, isSuperuser bool
		queryString := "SELECT is_active, is_verified, is_superuser FROM admin_schema.users WHERE user_id = $1"
		row := databaseMgr.GetPool().QueryRow(c, queryString, userId)
		if err := row.Scan(&isActive, &isVerified, &isSuperuser); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, err)
				return
			}
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}

		// A deactivated account is treated as no identity at all.
		if !isActive {
			utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, errors.New("user deactivated"))
			return
		}

		switch capability {
		case CapabilityActive:
			// Already enforced above.
		case CapabilityVerified:
			if !isVerified {
				utils.WriteAndLogError(c, schemas.UserNotVerified, http.StatusForbidden, errCapabilityMissing)
				return
			}
		case CapabilitySuperuser:
			if !isSuperuser {
				utils.WriteAndLogError(c, schemas.Forbidden, http.StatusForbidden, errCapabilityMissing)
				return
			}
		}

		c.Next()
	}
}
