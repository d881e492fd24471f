// Package comms binds the invocation contract to COMMS request/reply: a
// remote invoker that sends invocations to a subject, and a listener that
// serves a local invoker on one.
package comms

// InvocationRequest is the JSON envelope for an invocation sent over COMMS.
// Only attachments travel; invocation attributes are local by contract.
type InvocationRequest struct {
	ID             string         `json:"id"`
	Service        string         `json:"service"`
	TargetService  string         `json:"targetService,omitempty"`
	Method         string         `json:"method"`
	ParameterTypes []string       `json:"parameterTypes,omitempty"`
	Arguments      []any          `json:"arguments,omitempty"`
	Attachments    map[string]any `json:"attachments,omitempty"`
}

// InvocationResponse is the JSON envelope for an invocation outcome.
type InvocationResponse struct {
	ID          string         `json:"id"`
	Ok          bool           `json:"ok"`
	Value       any            `json:"value,omitempty"`
	Attachments map[string]any `json:"attachments,omitempty"`
	Error       *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Kind      string `json:"kind,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
