package repository

import (
	"errors"

	"github.com/ignatzorin/truck-storefront/internal/repository/common"
)

var (
	// ErrOTPNotFound возвращается, когда подходящей записи подтверждения нет.
	ErrOTPNotFound = errors.New("otp verification not found")
	// ErrTruckNotFound возвращается, когда грузовик не найден.
	ErrTruckNotFound = errors.New("truck not found")
	// ErrReportNotFound возвращается, когда для грузовика нет отчёта об осмотре.
	ErrReportNotFound = errors.New("inspection report not found")
	// ErrStoreUnavailable хранилище недоступно; вызывающий код решает, деградировать или падать.
	ErrStoreUnavailable = common.ErrStoreUnavailable
)
