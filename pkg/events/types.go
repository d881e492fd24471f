// Package events defines event types and publisher interfaces for invocation
// lifecycle events.
package events

// InvocationEvent is emitted after a served invocation completes, whether it
// produced a value or a fault.
type InvocationEvent struct {
	Service    string `json:"service"`
	Method     string `json:"method"`
	Subject    string `json:"subject,omitempty"`
	Ok         bool   `json:"ok"`
	FaultKind  string `json:"faultKind,omitempty"`
	FaultCode  string `json:"faultCode,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  string `json:"timestamp"`
}
