package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/morezero/extension-dispatch/pkg/endpoint"
)

func testEndpoint(version string) *endpoint.Descriptor {
	params := map[string]string{}
	if version != "" {
		params[endpoint.VersionKey] = version
	}
	return endpoint.New("inproc", "localhost", 0, "svc", params)
}

func TestHandlerInvoker_Success(t *testing.T) {
	var seen *Invocation
	h := NewHandlerInvoker("orders.OrderService", testEndpoint(""), func(_ context.Context, inv *Invocation) (any, error) {
		seen = inv
		return "order-1", nil
	})

	inv := NewInvocation("orders.OrderService", "place", []string{"string"}, []any{"widget"})
	res, err := h.Invoke(context.Background(), inv)
	if err != nil {
		t.Fatalf("handler_test - invoke failed: %v", err)
	}
	if res.HasFault() {
		t.Fatalf("handler_test - unexpected fault: %v", res.Fault())
	}
	if res.Value() != "order-1" {
		t.Errorf("handler_test - value = %v", res.Value())
	}
	if seen.Invoker() != h {
		t.Error("handler_test - the executing invoker must set the invocation backref")
	}
}

func TestHandlerInvoker_ArityCheckedBeforeHandler(t *testing.T) {
	called := false
	h := NewHandlerInvoker("svc", nil, func(_ context.Context, _ *Invocation) (any, error) {
		called = true
		return nil, nil
	})

	inv := NewInvocation("svc", "m", []string{"string", "int"}, []any{"only-one"})
	_, err := h.Invoke(context.Background(), inv)
	if !IsCode(err, CodeInvalidInvocation) {
		t.Errorf("handler_test - expected INVALID_INVOCATION, got %v", err)
	}
	if called {
		t.Error("handler_test - handler ran despite arity mismatch")
	}
}

func TestHandlerInvoker_ErrorBecomesBusinessFault(t *testing.T) {
	cause := errors.New("no such order")
	h := NewHandlerInvoker("svc", nil, func(_ context.Context, _ *Invocation) (any, error) {
		return nil, cause
	})

	res, err := h.Invoke(context.Background(), NewInvocation("svc", "m", nil, nil))
	if err != nil {
		t.Fatalf("handler_test - business failure must come back as a fault result, not an error: %v", err)
	}
	f := res.Fault()
	if f.Kind != FaultBusiness || f.Retryable {
		t.Errorf("handler_test - fault = %+v, want non-retryable business", f)
	}
	if !errors.Is(f, cause) {
		t.Error("handler_test - fault must wrap the handler error")
	}
}

func TestHandlerInvoker_FaultPassthrough(t *testing.T) {
	want := TransportFault("downstream reset", nil, true)
	h := NewHandlerInvoker("svc", nil, func(_ context.Context, _ *Invocation) (any, error) {
		return nil, want
	})

	res, err := h.Invoke(context.Background(), NewInvocation("svc", "m", nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.Fault() != want {
		t.Error("handler_test - handler-provided fault must pass through verbatim")
	}
}

func TestHandlerInvoker_DeadlineBecomesTimeoutFault(t *testing.T) {
	h := NewHandlerInvoker("svc", nil, func(ctx context.Context, _ *Invocation) (any, error) {
		return nil, context.DeadlineExceeded
	})

	res, err := h.Invoke(context.Background(), NewInvocation("svc", "m", nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	f := res.Fault()
	if f.Kind != FaultTimeout || !f.Retryable {
		t.Errorf("handler_test - fault = %+v, want retryable timeout", f)
	}
}

func TestHandlerInvoker_Lifecycle(t *testing.T) {
	h := NewHandlerInvoker("svc", nil, func(_ context.Context, _ *Invocation) (any, error) {
		return nil, nil
	})

	if !h.IsAvailable() {
		t.Error("handler_test - fresh invoker must be available")
	}

	h.SetAvailable(false)
	if h.IsAvailable() {
		t.Error("handler_test - degraded invoker must report unavailable")
	}
	h.SetAvailable(true)
	if !h.IsAvailable() {
		t.Error("handler_test - availability must be restorable")
	}

	h.Destroy()
	h.Destroy() // idempotent
	if h.IsAvailable() {
		t.Error("handler_test - destroyed invoker must report unavailable")
	}
	_, err := h.Invoke(context.Background(), NewInvocation("svc", "m", nil, nil))
	if !IsCode(err, CodeInvokerClosed) {
		t.Errorf("handler_test - expected INVOKER_CLOSED, got %v", err)
	}
}

func TestStaticDirectory_VersionFilter(t *testing.T) {
	v1 := NewHandlerInvoker("svc", testEndpoint("1.2.0"), nil)
	v2 := NewHandlerInvoker("svc", testEndpoint("2.0.1"), nil)
	down := NewHandlerInvoker("svc", testEndpoint("1.9.0"), nil)
	down.SetAvailable(false)

	dir := NewStaticDirectory(v1, v2, down)

	matches, err := dir.List("^1.0.0")
	if err != nil {
		t.Fatalf("handler_test - list failed: %v", err)
	}
	if len(matches) != 1 || matches[0] != v1 {
		t.Errorf("handler_test - List(^1.0.0) = %d invokers, want only v1", len(matches))
	}

	all, err := dir.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("handler_test - List(\"\") = %d invokers, want 2 available", len(all))
	}

	first, err := dir.First("^2.0.0")
	if err != nil || first != v2 {
		t.Errorf("handler_test - First(^2.0.0) = %v, %v; want v2", first, err)
	}

	if _, err := dir.First("^9.0.0"); !IsCode(err, CodeNoAvailableInvoker) {
		t.Errorf("handler_test - expected NO_AVAILABLE_INVOKER, got %v", err)
	}

	if _, err := dir.List("not-a-range"); err == nil {
		t.Error("handler_test - invalid constraint must error")
	}
}
