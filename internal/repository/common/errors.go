package common

import "errors"

// ErrStoreUnavailable означает, что хранилище не ответило (сеть, пул, таймаут).
// Отсутствие строк сбоем не является и возвращается отдельной ошибкой репозитория.
var ErrStoreUnavailable = errors.New("store unavailable")

// Unavailable оборачивает ошибку драйвера так, чтобы errors.Is находил ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return &storeError{op: op, err: err}
}

type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return e.op + ": " + ErrStoreUnavailable.Error() + ": " + e.err.Error()
}

func (e *storeError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.err}
}
