package rpc

import "errors"

// Error codes raised at the dispatch boundary, before or instead of
// executing the call. These indicate caller mistakes and are never retried.
const (
	CodeInvalidInvocation  = "INVALID_INVOCATION"
	CodeInvokerClosed      = "INVOKER_CLOSED"
	CodeNoAvailableInvoker = "NO_AVAILABLE_INVOKER"
)

// InvocationError is a structured pre-dispatch error.
type InvocationError struct {
	Code    string
	Message string
}

func (e *InvocationError) Error() string {
	return e.Code + ": " + e.Message
}

// IsCode reports whether err is an *InvocationError carrying the given code.
func IsCode(err error, code string) bool {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Code == code
	}
	return false
}
