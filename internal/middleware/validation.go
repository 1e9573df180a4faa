package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"admin-core/internal/schemas"
	"admin-core/internal/utils"
)

// ValidateAndSanitizeStruct decodes the request body into a fresh instance of
// the given struct type, strips markup from its string fields, validates it,
// and stores the result in the context for the handler. Handlers behind this
// middleware retrieve the payload via utils.SanitizedPayloadKey.
func ValidateAndSanitizeStruct(factory func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := factory()

		if err := c.ShouldBindJSON(obj); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		validator := utils.GetValidator()
		if err := validator.SanitizeData(obj); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		if err := validator.Validate.Struct(obj); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusUnprocessableEntity, err)
			return
		}

		c.Set(utils.SanitizedPayloadKey.String(), obj)
		c.Next()
	}
}
