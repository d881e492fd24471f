package comms

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	natsio "github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"

	"github.com/morezero/extension-dispatch/pkg/commsutil"
	"github.com/morezero/extension-dispatch/pkg/endpoint"
	"github.com/morezero/extension-dispatch/pkg/rpc"
)

const invokerLogPrefix = "comms:invoker"

const defaultRequestTimeout = 25 * time.Second

// InvokerParams holds parameters for NewInvoker.
type InvokerParams struct {
	Conn      *natsio.Conn
	Interface string
	Endpoint  *endpoint.Descriptor
	// SubjectPrefix overrides the default "rpc" subject prefix.
	SubjectPrefix string
	// RequestTimeout bounds calls whose context carries no deadline.
	RequestTimeout time.Duration
}

// Invoker is an rpc.Invoker that sends invocations to a COMMS subject and
// waits for the response envelope. The connection is shared and owned by the
// embedder; Destroy marks this invoker closed without touching it.
type Invoker struct {
	nc      *natsio.Conn
	iface   string
	ep      *endpoint.Descriptor
	subject string
	timeout time.Duration
	closed  atomic.Bool
}

// NewInvoker creates a remote invoker for the given capability interface.
func NewInvoker(params InvokerParams) *Invoker {
	timeout := params.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Invoker{
		nc:      params.Conn,
		iface:   params.Interface,
		ep:      params.Endpoint,
		subject: commsutil.BuildServiceSubject(params.SubjectPrefix, params.Interface),
		timeout: timeout,
	}
}

// Interface returns the capability interface name.
func (i *Invoker) Interface() string { return i.iface }

// Endpoint returns the invoker's endpoint descriptor.
func (i *Invoker) Endpoint() *endpoint.Descriptor { return i.ep }

// Subject returns the COMMS subject invocations are sent to.
func (i *Invoker) Subject() string { return i.subject }

// IsAvailable reports whether the invoker is open and the connection is up.
func (i *Invoker) IsAvailable() bool {
	return !i.closed.Load() && i.nc != nil && i.nc.Status() == natsio.CONNECTED
}

// Invoke sends the invocation and maps the response envelope to a Result.
// Transport problems come back as fault results, not errors; only
// pre-dispatch validation fails with an error.
func (i *Invoker) Invoke(ctx context.Context, inv *rpc.Invocation) (*rpc.Result, error) {
	if i.closed.Load() {
		return nil, &rpc.InvocationError{Code: rpc.CodeInvokerClosed, Message: fmt.Sprintf("%s - %s invoked after destroy", invokerLogPrefix, i.iface)}
	}
	if err := rpc.ValidateArity(inv); err != nil {
		return nil, err
	}

	inv.SetInvoker(i)

	req := &InvocationRequest{
		ID:             nuid.Next(),
		Service:        inv.ServiceName(),
		TargetService:  inv.TargetServiceUniqueName(),
		Method:         inv.MethodName(),
		ParameterTypes: inv.ParameterTypes(),
		Arguments:      inv.Arguments(),
		Attachments:    inv.Attachments(),
	}
	data, err := commsutil.EncodePayload(req)
	if err != nil {
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("failed to encode %s.%s request", inv.ServiceName(), inv.MethodName()), err, false)), nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	msg, err := i.nc.RequestWithContext(ctx, i.subject, data)
	if err != nil {
		return rpc.FaultResult(i.requestFault(inv, err)), nil
	}

	var resp InvocationResponse
	if err := commsutil.DecodePayload(msg.Data, &resp); err != nil {
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("invalid response envelope from %s", i.subject), err, false)), nil
	}

	if !resp.Ok {
		return rpc.FaultResult(faultFromDetail(resp.Error)), nil
	}

	inv.MergeAttachments(resp.Attachments)
	result := rpc.ValueResult(resp.Value)
	for k, v := range resp.Attachments {
		result.SetAttachment(k, v)
	}
	return result, nil
}

// Destroy marks the invoker closed. Idempotent; the shared connection stays
// open.
func (i *Invoker) Destroy() {
	i.closed.Store(true)
}

func (i *Invoker) requestFault(inv *rpc.Invocation, err error) *rpc.Fault {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return rpc.TimeoutFault(fmt.Sprintf("%s.%s timed out on %s", inv.ServiceName(), inv.MethodName(), i.subject), err)
	case errors.Is(err, natsio.ErrNoResponders):
		return rpc.TransportFault(fmt.Sprintf("no responders on %s", i.subject), err, true)
	default:
		return rpc.TransportFault(fmt.Sprintf("request to %s failed", i.subject), err, true)
	}
}

func faultFromDetail(detail *ErrorDetail) *rpc.Fault {
	if detail == nil {
		return rpc.TransportFault("response envelope reported a failure without detail", nil, false)
	}
	kind := rpc.FaultKind(detail.Kind)
	switch kind {
	case rpc.FaultBusiness, rpc.FaultTransport, rpc.FaultTimeout:
	default:
		kind = rpc.FaultTransport
	}
	return &rpc.Fault{
		Kind:      kind,
		Code:      detail.Code,
		Message:   detail.Message,
		Retryable: detail.Retryable,
	}
}
