package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/truck-storefront/internal/dto"
	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, централизованно.
// Клиент видит только сообщение из таксономии, текст причины остаётся в логах.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Ответ уже отправлен обработчиком
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError отправляет ответ с ошибкой и прерывает цепочку обработчиков.
func WriteError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.ErrCodeInternal, apperror.MsgInternal)
	}

	fields := logrus.Fields{
		"code":   appErr.Code,
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Log.WithFields(fields).WithError(err).Error("Request error")
	} else {
		logger.Log.WithFields(fields).Debug(appErr.Message)
	}

	resp := dto.ErrorResponse{
		Error:             appErr.Message,
		Code:              string(appErr.Code),
		RemainingAttempts: appErr.RemainingAttempts,
	}
	if appErr.Code == apperror.ErrCodeValidation {
		resp.Error = apperror.MsgInvalidInput
		resp.Details = appErr.Message
	}
	if appErr.RetryAfter > 0 {
		resp.RetryAfter = retryAfterSeconds(appErr.RetryAfter.Seconds())
		c.Header("Retry-After", strconv.Itoa(resp.RetryAfter))
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus, resp)
}

// retryAfterSeconds округляет вверх, чтобы клиент не пришёл раньше срока.
func retryAfterSeconds(seconds float64) int {
	s := int(math.Ceil(seconds))
	if s < 1 {
		return 1
	}
	return s
}
