package rpc

// Result is the discriminated outcome of an invocation: either a return
// value plus callee-produced attachments, or a fault. Exactly one side is
// populated; inspecting the unpopulated side panics, because doing so is a
// programming error, not a runtime condition.
type Result struct {
	value       any
	attachments map[string]any
	fault       *Fault
	hasValue    bool
}

// ValueResult builds a success result. A nil value is legal (void returns).
func ValueResult(value any) *Result {
	return &Result{value: value, hasValue: true}
}

// FaultResult builds a failed result. Panics on a nil fault.
func FaultResult(fault *Fault) *Result {
	if fault == nil {
		panic("rpc: FaultResult called with nil fault")
	}
	return &Result{fault: fault}
}

// HasFault reports which side of the result is populated.
func (r *Result) HasFault() bool { return r.fault != nil }

// Value returns the success payload. Panics when the result carries a fault;
// check HasFault first.
func (r *Result) Value() any {
	if !r.hasValue {
		panic("rpc: Value() called on a fault result; check HasFault first")
	}
	return r.value
}

// Fault returns the fault. Panics when the result carries a value; check
// HasFault first.
func (r *Result) Fault() *Fault {
	if r.fault == nil {
		panic("rpc: Fault() called on a value result; check HasFault first")
	}
	return r.fault
}

// SetAttachment records an attachment the callee wants merged back into the
// caller's visible attachments.
func (r *Result) SetAttachment(key string, value any) {
	if r.attachments == nil {
		r.attachments = make(map[string]any)
	}
	r.attachments[key] = value
}

// Attachments returns a copy of the callee-produced attachments.
func (r *Result) Attachments() map[string]any {
	out := make(map[string]any, len(r.attachments))
	for k, v := range r.attachments {
		out[k] = v
	}
	return out
}
