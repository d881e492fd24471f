// Package rpc defines the uniform invocation contract of adaptive dispatch:
// the Invocation envelope describing one in-flight call, the Invoker
// interface every implementation honors, and the Result/Fault outcome types.
package rpc

import (
	"fmt"
)

const invocationLogPrefix = "rpc:invocation"

// Invocation is the envelope for one call: target identity, method,
// declared parameter types, arguments, propagated attachments, and
// local-only attributes.
//
// An Invocation is owned by its originating call site and is not safe for
// concurrent use; construct a fresh one per call (or Clone for sub-calls).
// Invokers, by contrast, are shared and must be called concurrently.
type Invocation struct {
	targetServiceUniqueName string
	serviceName             string
	methodName              string
	parameterTypes          []string
	arguments               []any

	// attachments travel with the call across process boundaries;
	// attributes never leave the local process.
	attachments map[string]any
	attributes  map[any]any

	invoker Invoker
}

// NewInvocation builds an Invocation for service.method with the declared
// parameter types and arguments. The target service unique name defaults to
// the service name.
func NewInvocation(service, method string, parameterTypes []string, arguments []any) *Invocation {
	return &Invocation{
		targetServiceUniqueName: service,
		serviceName:             service,
		methodName:              method,
		parameterTypes:          parameterTypes,
		arguments:               arguments,
		attachments:             make(map[string]any),
		attributes:              make(map[any]any),
	}
}

// TargetServiceUniqueName returns the unique name of the target service
// (group/name:version when set explicitly, otherwise the service name).
func (inv *Invocation) TargetServiceUniqueName() string { return inv.targetServiceUniqueName }

// SetTargetServiceUniqueName overrides the target service unique name.
func (inv *Invocation) SetTargetServiceUniqueName(name string) {
	inv.targetServiceUniqueName = name
}

// ServiceName returns the capability interface name.
func (inv *Invocation) ServiceName() string { return inv.serviceName }

// MethodName returns the method being called.
func (inv *Invocation) MethodName() string { return inv.methodName }

// ParameterTypes returns the declared parameter type names. Callers must
// treat the returned slice as read-only.
func (inv *Invocation) ParameterTypes() []string { return inv.parameterTypes }

// Arguments returns the argument values. Callers must treat the returned
// slice as read-only.
func (inv *Invocation) Arguments() []any { return inv.arguments }

// SetAttachment sets a propagated attachment.
func (inv *Invocation) SetAttachment(key string, value any) {
	inv.attachments[key] = value
}

// SetAttachmentIfAbsent sets an attachment only when the key is not present.
func (inv *Invocation) SetAttachmentIfAbsent(key string, value any) {
	if _, ok := inv.attachments[key]; !ok {
		inv.attachments[key] = value
	}
}

// Attachment returns the attachment under key.
func (inv *Invocation) Attachment(key string) (any, bool) {
	v, ok := inv.attachments[key]
	return v, ok
}

// AttachmentOr returns the attachment under key, or def when absent.
func (inv *Invocation) AttachmentOr(key string, def any) any {
	if v, ok := inv.attachments[key]; ok {
		return v
	}
	return def
}

// Attachments returns a copy of the attachment map.
func (inv *Invocation) Attachments() map[string]any {
	out := make(map[string]any, len(inv.attachments))
	for k, v := range inv.attachments {
		out[k] = v
	}
	return out
}

// MergeAttachments copies the given entries into the attachment map,
// overwriting existing keys. Used to fold callee-produced attachments back
// into the caller's view.
func (inv *Invocation) MergeAttachments(attachments map[string]any) {
	for k, v := range attachments {
		inv.attachments[k] = v
	}
}

// Put stores a local-only attribute and returns the previous value, if any.
// Attributes are never propagated across process boundaries.
func (inv *Invocation) Put(key, value any) any {
	prev := inv.attributes[key]
	inv.attributes[key] = value
	return prev
}

// Get returns the local-only attribute under key.
func (inv *Invocation) Get(key any) any {
	return inv.attributes[key]
}

// Invoker returns the invoker currently executing this invocation.
func (inv *Invocation) Invoker() Invoker { return inv.invoker }

// SetInvoker records the executing invoker. Set by the invoker at the start
// of Invoke; read-only to everyone else.
func (inv *Invocation) SetInvoker(invoker Invoker) { inv.invoker = invoker }

// Clone returns an independent copy for delegation to a sub-call: the
// attachment map is deep-copied, the attribute map starts fresh, and the
// invoker backref is cleared. Parameter types and arguments are copied as
// slices; the argument values themselves are shared.
func (inv *Invocation) Clone() *Invocation {
	out := NewInvocation(inv.serviceName, inv.methodName, append([]string(nil), inv.parameterTypes...), append([]any(nil), inv.arguments...))
	out.targetServiceUniqueName = inv.targetServiceUniqueName
	for k, v := range inv.attachments {
		out.attachments[k] = v
	}
	return out
}

// String renders a short diagnostic form.
func (inv *Invocation) String() string {
	return fmt.Sprintf("%s.%s/%d args", inv.serviceName, inv.methodName, len(inv.arguments))
}

// ValidateArity fails with INVALID_INVOCATION when the argument count does
// not match the declared parameter types. Invokers call this before any
// other side effect.
func ValidateArity(inv *Invocation) error {
	if len(inv.arguments) != len(inv.parameterTypes) {
		return &InvocationError{
			Code:    CodeInvalidInvocation,
			Message: fmt.Sprintf("%s - %s.%s: %d arguments for %d parameter types", invocationLogPrefix, inv.serviceName, inv.methodName, len(inv.arguments), len(inv.parameterTypes)),
		}
	}
	return nil
}
