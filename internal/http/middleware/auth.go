package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
	"github.com/ignatzorin/truck-storefront/internal/service"
)

// Заголовки, которыми клиент предъявляет подтверждение телефона.
const (
	HeaderPhone    = "X-Phone"
	HeaderOTPToken = "X-OTP-Token"
)

// Context ключи для gin.Context.
const (
	ContextGrantKey = "otpGrant"
)

// GrantChecker проверяет токен подтверждения телефона.
type GrantChecker interface {
	CheckToken(ctx context.Context, phone, purpose, token string) service.GrantCheck
}

// RequireLiveGrant пропускает запрос только с действующим подтверждением для purpose.
// Подтверждение при этом не гасится.
func RequireLiveGrant(gate GrantChecker, purpose string) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.GetHeader(HeaderPhone)
		token := c.GetHeader(HeaderOTPToken)
		if phone == "" || token == "" {
			WriteError(c, apperror.New(apperror.ErrCodeUnauthorized, apperror.MsgGrantRequired))
			return
		}

		check := gate.CheckToken(c.Request.Context(), phone, purpose, token)
		if !check.Valid {
			code := apperror.ErrCodeUnauthorized
			if check.Unavailable {
				code = apperror.ErrCodeStoreUnavailable
			}
			WriteError(c, apperror.New(code, check.Reason))
			return
		}

		c.Set(ContextGrantKey, check.Grant)
		c.Next()
	}
}
