package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/truck-storefront/internal/dto"
	"github.com/ignatzorin/truck-storefront/internal/http/middleware"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
)

// ParseIDParam читает положительный целочисленный идентификатор из URL.
func ParseIDParam(c *gin.Context, paramName string) (int64, error) {
	raw := c.Param(paramName)
	if raw == "" {
		return 0, fmt.Errorf("parameter %s is required", paramName)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("parameter %s must be a positive integer", paramName)
	}
	return id, nil
}

// BindAndValidate разбирает JSON тело. Ошибка уже имеет тип VALIDATION_ERROR.
func BindAndValidate(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, bindingDetails(req, err))
	}
	return nil
}

// RespondError отправляет ответ с ошибкой приложения.
func RespondError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// RespondSuccess отправляет стандартный ответ с данными.
func RespondSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, dto.SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// bindingDetails не пропускает наружу внутренности декодера.
func bindingDetails(req interface{}, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, jsonFieldName(req, fe.StructField()))
		}
		return "missing required fields: " + strings.Join(fields, ", ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %s has invalid type", typeErr.Field)
	}

	return "request body is malformed"
}

// jsonFieldName имя поля в JSON по имени поля структуры.
func jsonFieldName(req interface{}, structField string) string {
	t := reflect.TypeOf(req)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(structField); ok {
			if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
				return name
			}
		}
	}
	return structField
}
