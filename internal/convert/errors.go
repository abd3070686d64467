package convert

import (
	"errors"
	"fmt"
)

var (
	ErrNoImages        = errors.New("no images provided")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidationError: ошибка клиента, отвечаем 4xx.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err == nil || e.Err.Error() == e.Reason {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConversionError: сломались мы, отвечаем 5xx без подробностей.
type ConversionError struct {
	Op  string
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// AsValidation достаёт ValidationError из цепочки ошибок.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
