package rpc

import (
	"context"

	"github.com/morezero/extension-dispatch/pkg/endpoint"
)

// Invoker is the uniform executable contract: local handlers, remote client
// stubs, and policy wrappers all answer an Invocation with a Result through
// this one interface.
//
// Invoke must be safe to call concurrently from independent call sites; the
// Invocation it receives is single-call-scoped. Invoke returns an error only
// for pre-dispatch problems (INVALID_INVOCATION, INVOKER_CLOSED); the
// callee's failures and transport problems come back as a fault Result.
type Invoker interface {
	// Interface returns the capability interface name this invoker serves.
	Interface() string

	// Endpoint returns the invoker's own address and configuration.
	Endpoint() *endpoint.Descriptor

	// IsAvailable reports whether the invoker can currently accept calls.
	IsAvailable() bool

	// Invoke executes the invocation and returns its outcome.
	Invoke(ctx context.Context, inv *Invocation) (*Result, error)

	// Destroy releases the invoker's resources. Subsequent Invoke calls
	// fail with INVOKER_CLOSED. Idempotent.
	Destroy()
}
