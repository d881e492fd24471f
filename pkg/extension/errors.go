package extension

import "errors"

// Error codes raised during registration and resolution. These indicate
// wiring mistakes and are never retried.
const (
	CodeDuplicateName      = "DUPLICATE_NAME"
	CodeUnknownName        = "UNKNOWN_NAME"
	CodeNoDefault          = "NO_DEFAULT"
	CodeAmbiguousExtension = "AMBIGUOUS_EXTENSION"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
)

// Error is a structured registration or resolution error.
type Error struct {
	Code    string
	Message string
	Details interface{}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code string) bool {
	var extErr *Error
	if errors.As(err, &extErr) {
		return extErr.Code == code
	}
	return false
}
