package rpc

// FaultKind classifies a fault so policy wrappers can tell a callee's own
// failure from a framework/transport problem.
type FaultKind string

const (
	// FaultBusiness is the callee's own reported failure, propagated
	// verbatim and never retried by this core.
	FaultBusiness FaultKind = "business"
	// FaultTransport covers connectivity and serialization failures.
	FaultTransport FaultKind = "transport"
	// FaultTimeout is a deadline expiry, kept distinct from other transport
	// faults so retry policy can treat it separately.
	FaultTimeout FaultKind = "timeout"
)

// Fault is a structured, classified failure outcome. It is data carried
// inside a Result, not a failure of the dispatch mechanism itself.
type Fault struct {
	Kind      FaultKind
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (f *Fault) Error() string {
	if f.Code != "" {
		return f.Code + ": " + f.Message
	}
	return string(f.Kind) + " fault: " + f.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *Fault) Unwrap() error { return f.Cause }

// BusinessFault builds a non-retryable business fault.
func BusinessFault(message string, cause error) *Fault {
	return &Fault{Kind: FaultBusiness, Code: "BUSINESS_FAULT", Message: message, Retryable: false, Cause: cause}
}

// TransportFault builds a transport fault; retryable marks whether an
// external policy wrapper may safely retry it.
func TransportFault(message string, cause error, retryable bool) *Fault {
	return &Fault{Kind: FaultTransport, Code: "TRANSPORT_FAULT", Message: message, Retryable: retryable, Cause: cause}
}

// TimeoutFault builds a retryable timeout fault.
func TimeoutFault(message string, cause error) *Fault {
	return &Fault{Kind: FaultTimeout, Code: "TIMEOUT", Message: message, Retryable: true, Cause: cause}
}
