package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
)

// IDValidator проверяет, что параметр с указанным именем является положительным целым.
// Использование: router.GET("/trucks/:id", IDValidator("id"), handler.GetTruck)
func IDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(paramName)
		if raw == "" {
			WriteError(c, apperror.New(apperror.ErrCodeValidation, "parameter "+paramName+" is required"))
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			WriteError(c, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("parameter %s must be a positive integer", paramName)))
			return
		}

		c.Next()
	}
}
