package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/morezero/extension-dispatch/pkg/endpoint"
)

const handlerLogPrefix = "rpc:handler"

// Handler is the function a local implementation provides: it receives the
// in-flight invocation and returns a value or an error. Returning a *Fault
// forwards it verbatim; any other error becomes a business fault.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// HandlerInvoker adapts a Handler to the Invoker contract. This is the
// "local" implementation kind: arity validation, closed-state handling, and
// fault wrapping live here so handlers stay plain functions.
type HandlerInvoker struct {
	iface    string
	ep       *endpoint.Descriptor
	handler  Handler
	closed   atomic.Bool
	degraded atomic.Bool
}

// NewHandlerInvoker builds a HandlerInvoker for the capability interface
// iface at the given endpoint.
func NewHandlerInvoker(iface string, ep *endpoint.Descriptor, handler Handler) *HandlerInvoker {
	return &HandlerInvoker{iface: iface, ep: ep, handler: handler}
}

// Interface returns the capability interface name.
func (h *HandlerInvoker) Interface() string { return h.iface }

// Endpoint returns the invoker's endpoint descriptor.
func (h *HandlerInvoker) Endpoint() *endpoint.Descriptor { return h.ep }

// IsAvailable reports whether the invoker accepts calls.
func (h *HandlerInvoker) IsAvailable() bool {
	return !h.closed.Load() && !h.degraded.Load()
}

// SetAvailable toggles the availability flag without destroying the invoker
// (temporarily unavailable <-> available).
func (h *HandlerInvoker) SetAvailable(available bool) {
	h.degraded.Store(!available)
}

// Invoke validates the invocation, runs the handler, and wraps its outcome.
func (h *HandlerInvoker) Invoke(ctx context.Context, inv *Invocation) (*Result, error) {
	if h.closed.Load() {
		return nil, &InvocationError{Code: CodeInvokerClosed, Message: fmt.Sprintf("%s - %s invoked after destroy", handlerLogPrefix, h.iface)}
	}
	if err := ValidateArity(inv); err != nil {
		return nil, err
	}

	inv.SetInvoker(h)

	value, err := h.handler(ctx, inv)
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) {
			return FaultResult(fault), nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return FaultResult(TimeoutFault(fmt.Sprintf("%s.%s timed out", h.iface, inv.MethodName()), err)), nil
		}
		return FaultResult(BusinessFault(err.Error(), err)), nil
	}
	return ValueResult(value), nil
}

// Destroy marks the invoker closed. Idempotent.
func (h *HandlerInvoker) Destroy() {
	h.closed.Store(true)
}
