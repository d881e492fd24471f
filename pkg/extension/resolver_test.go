package extension

import (
	"sync"
	"testing"

	"github.com/morezero/extension-dispatch/pkg/endpoint"
)

func descriptorWith(params map[string]string) *endpoint.Descriptor {
	return endpoint.New("comms", "localhost", 4222, "orders.OrderService", params)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	implA := &fakeProtocol{name: "a"}
	implB := &fakeProtocol{name: "b"}
	if err := reg.Register("a", implA); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("b", implB); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg, "key1", "key2")

	// key1 carries an empty value, which counts as absent: key2 must win.
	got, err := res.Resolve(descriptorWith(map[string]string{"key1": "", "key2": "b"}))
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	if got != implB {
		t.Errorf("resolver_test - resolved %q, want b", got.name)
	}

	// When key1 has a value, key2 must be ignored entirely.
	got, err = res.Resolve(descriptorWith(map[string]string{"key1": "a", "key2": "b"}))
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	if got != implA {
		t.Errorf("resolver_test - resolved %q, want a (priority order, not merge)", got.name)
	}
}

func TestResolve_FallsBackToDefault(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	implA := &fakeProtocol{name: "tcp"}
	if err := reg.Register("tcp", implA); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetDefault("tcp"); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg, "protocol")
	got, err := res.Resolve(descriptorWith(nil))
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	if got != implA {
		t.Error("resolver_test - expected the default implementation")
	}
}

func TestResolve_NoMatchNoDefault(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	if err := reg.Register("tcp", &fakeProtocol{}); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg, "protocol")
	_, err := res.Resolve(descriptorWith(nil))
	if !IsCode(err, CodeAmbiguousExtension) {
		t.Errorf("resolver_test - expected AMBIGUOUS_EXTENSION, got %v", err)
	}
}

func TestResolve_UnknownNameFromDescriptor(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	if err := reg.Register("tcp", &fakeProtocol{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetDefault("tcp"); err != nil {
		t.Fatal(err)
	}

	// A typo in configuration must surface, not silently fall back to the
	// default.
	res := NewResolver(reg, "protocol")
	_, err := res.Resolve(descriptorWith(map[string]string{"protocol": "grpc"}))
	if !IsCode(err, CodeUnknownName) {
		t.Errorf("resolver_test - expected UNKNOWN_NAME, got %v", err)
	}
}

func TestResolve_NilDescriptor(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	res := NewResolver(reg, "protocol")
	if _, err := res.Resolve(nil); !IsCode(err, CodeInvalidArgument) {
		t.Errorf("resolver_test - expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestResolver_DerivedKey(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("YyyInvokerWrapper")
	impl := &fakeProtocol{name: "custom"}
	if err := reg.Register("custom", impl); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg)
	keys := res.Keys()
	if len(keys) != 1 || keys[0] != "yyy.invoker.wrapper" {
		t.Fatalf("resolver_test - derived keys = %v, want [yyy.invoker.wrapper]", keys)
	}

	got, err := res.Resolve(descriptorWith(map[string]string{"yyy.invoker.wrapper": "custom"}))
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	if got != impl {
		t.Error("resolver_test - derived key did not select the implementation")
	}
}

func TestResolve_CacheShortCircuits(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	if err := reg.Register("tcp", &fakeProtocol{name: "tcp"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("http", &fakeProtocol{name: "http"}); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg, "protocol")
	d := descriptorWith(map[string]string{"protocol": "tcp"})

	first, err := res.Resolve(d)
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	// Same parameter content, different descriptor identity: the cache keys
	// on content, so this must not trigger a second full resolution.
	second, err := res.Resolve(descriptorWith(map[string]string{"protocol": "tcp", "timeout": "5s"}))
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	if first != second {
		t.Error("resolver_test - cache changed the resolution outcome")
	}
	if n := res.resolutions.Load(); n != 1 {
		t.Errorf("resolver_test - full resolutions = %d, want 1 (cache must short-circuit)", n)
	}

	// A changed relevant parameter must invalidate the cached pair.
	third, err := res.Resolve(descriptorWith(map[string]string{"protocol": "http"}))
	if err != nil {
		t.Fatalf("resolver_test - resolve failed: %v", err)
	}
	if third.name != "http" {
		t.Errorf("resolver_test - resolved %q after param change, want http", third.name)
	}
	if n := res.resolutions.Load(); n != 2 {
		t.Errorf("resolver_test - full resolutions = %d, want 2 after invalidation", n)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	implA := &fakeProtocol{name: "tcp"}
	implB := &fakeProtocol{name: "http"}
	if err := reg.Register("tcp", implA); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("http", implB); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetDefault("tcp"); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg, "protocol")
	dA := descriptorWith(map[string]string{"protocol": "tcp"})
	dB := descriptorWith(map[string]string{"protocol": "http"})

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, err := res.Resolve(dA)
			if err != nil {
				errs <- err
				return
			}
			if got != implA {
				errs <- &Error{Code: "TEST", Message: "descriptor A resolved to the wrong implementation"}
			}
		}()
		go func() {
			defer wg.Done()
			got, err := res.Resolve(dB)
			if err != nil {
				errs <- err
				return
			}
			if got != implB {
				errs <- &Error{Code: "TEST", Message: "descriptor B resolved to the wrong implementation"}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("resolver_test - concurrent resolve: %v", err)
	}
}

// End-to-end selection scenario: default, explicit selection, and a
// configuration typo.
func TestResolve_EndToEndScenario(t *testing.T) {
	reg := NewRegistry[*fakeProtocol]("Protocol")
	implA := &fakeProtocol{name: "tcp"}
	implB := &fakeProtocol{name: "http"}
	if err := reg.Register("tcp", implA); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("http", implB); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetDefault("tcp"); err != nil {
		t.Fatal(err)
	}

	res := NewResolver(reg, "protocol")

	got, err := res.Resolve(descriptorWith(nil))
	if err != nil || got != implA {
		t.Errorf("resolver_test - no parameter: got %v, %v; want default implA", got, err)
	}

	got, err = res.Resolve(descriptorWith(map[string]string{"protocol": "http"}))
	if err != nil || got != implB {
		t.Errorf("resolver_test - protocol=http: got %v, %v; want implB", got, err)
	}

	_, err = res.Resolve(descriptorWith(map[string]string{"protocol": "grpc"}))
	if !IsCode(err, CodeUnknownName) {
		t.Errorf("resolver_test - protocol=grpc: expected UNKNOWN_NAME, got %v", err)
	}
}
