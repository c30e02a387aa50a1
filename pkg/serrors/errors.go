package serrors

import "fmt"

// BaseError carries a stable machine-readable code alongside the message so
// transports can map errors without string matching.
type BaseError struct {
	Code    string
	Message string
	Field   string
}

func (e *BaseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a BaseError with the given code and message.
func NewError(code, message, field string) *BaseError {
	return &BaseError{Code: code, Message: message, Field: field}
}

// NewFieldRequiredError reports a missing required field on an input payload.
func NewFieldRequiredError(field string) *BaseError {
	return &BaseError{
		Code:    "FIELD_REQUIRED",
		Message: fmt.Sprintf("%s is required", field),
		Field:   field,
	}
}
